package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	socket "github.com/Zereker/socketmon"
	"github.com/Zereker/socketmon/monitor"
)

type message struct {
	body []byte
}

func (m message) Length() int {
	return len(m.body)
}

func (m message) Body() []byte {
	return m.body
}

// codec treats whatever a single read returns as one message.
type codec struct{}

func (c *codec) Decode(r io.Reader) (socket.Message, error) {
	buf := make([]byte, 1024)
	n, err := r.Read(buf)
	if err != nil {
		return nil, err
	}
	return message{body: buf[:n]}, nil
}

func (c *codec) Encode(msg socket.Message) ([]byte, error) {
	return msg.Body(), nil
}

type handler struct {
	events *monitor.Channel
}

func (h *handler) Handle(raw *net.TCPConn) {
	var conn *socket.Conn
	conn, err := socket.NewConn(raw,
		socket.CustomCodecOption(new(codec)),
		socket.MonitorOption(h.events, monitor.KindDisconnected),
		socket.OnMessageOption(func(m socket.Message) error {
			return conn.Write(m)
		}),
	)
	if err != nil {
		slog.Error("failed to wrap connection", "error", err)
		_ = raw.Close()
		return
	}

	_ = conn.Run(context.Background())
}

// logEvents prints every monitoring event until the channel is closed.
func logEvents(ch *monitor.Channel) {
	for {
		event, err := monitor.RecvEvent(context.Background(), ch)
		if errors.Is(err, monitor.ErrChannelClosed) {
			return
		}
		if err != nil {
			slog.Warn("bad monitor message", "error", err)
			continue
		}

		switch p := event.Payload.(type) {
		case monitor.Listening:
			slog.Info("listening", "addr", event.Address, "fd", p.Handle)
		case monitor.Accepted:
			slog.Info("accepted", "addr", event.Address, "fd", p.Handle)
		case monitor.Disconnected:
			slog.Info("disconnected", "addr", event.Address, "fd", p.Handle)
		case monitor.BindFailed:
			slog.Error("bind failed", "addr", event.Address, "error", p.Err)
		case monitor.AcceptFailed:
			slog.Error("accept failed", "addr", event.Address, "error", p.Err)
		case monitor.CloseFailed:
			slog.Error("close failed", "addr", event.Address, "error", p.Err)
		case monitor.MonitorStopped:
			slog.Info("monitor stopped", "addr", event.Address)
			return
		default:
			slog.Debug("event", "kind", event.Kind, "addr", event.Address)
		}
	}
}

func main() {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:12345")
	if err != nil {
		panic(err)
	}

	events := monitor.NewChannel(0)
	done := make(chan struct{})
	go func() {
		logEvents(events)
		close(done)
	}()

	server, err := socket.New(addr, socket.ServerMonitorOption(events, 0))
	if err != nil {
		_ = events.Close()
		<-done
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Serve(ctx, &handler{events: events}); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "error", err)
	}

	_ = server.Close()
	<-done
}
