package socket

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/Zereker/socketmon/monitor"
)

// Handler handles accepted TCP connections.
type Handler interface {
	// Handle is called in its own goroutine for each new connection.
	Handle(conn *net.TCPConn)
}

// Server listens for TCP connections and dispatches them to a Handler.
type Server struct {
	listener        *net.TCPListener
	logger          Logger
	shutdownTimeout time.Duration

	monitorCh   *monitor.Channel
	monitorMask monitor.Kind
	events      *eventSink
	handle      int32
	endpoint    string

	mu          sync.Mutex
	shutdown    bool
	closed      bool
	shutdownNow chan struct{} // closed by Close; bypasses the shutdown timeout
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// ServerLoggerOption sets the logger for the server.
func ServerLoggerOption(logger Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// ServerShutdownTimeoutOption sets how long Serve keeps accepting after
// its context is canceled. Close skips the remaining wait.
// Default is 0 (immediate shutdown).
func ServerShutdownTimeoutOption(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = timeout
	}
}

// ServerMonitorOption enables socket monitoring for the listener.
// A zero mask selects monitor.KindAll.
func ServerMonitorOption(ch *monitor.Channel, mask monitor.Kind) ServerOption {
	return func(s *Server) {
		s.monitorCh = ch
		s.monitorMask = mask
	}
}

// New creates a server bound to addr. It emits Listening on success and
// BindFailed when the address cannot be bound.
func New(addr *net.TCPAddr, opts ...ServerOption) (*Server, error) {
	s := &Server{
		logger:      slog.Default(),
		handle:      -1,
		shutdownNow: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = newEventSink(s.monitorCh, s.monitorMask, s.logger)

	listener, err := net.ListenTCP(addr.Network(), addr)
	if err != nil {
		s.events.emit(monitor.KindBindFailed, errorCode(err), endpointOf(addr))
		return nil, err
	}

	s.listener = listener
	s.handle = socketHandle(listener)
	s.endpoint = endpointOf(listener.Addr())
	s.events.emit(monitor.KindListening, s.handle, s.endpoint)

	return s, nil
}

// Serve starts accepting connections and dispatching them to the handler.
// It blocks until the context is canceled, Close is called, or an
// unrecoverable accept error occurs.
//
// When the context is canceled, the server stops accepting new
// connections. If ServerShutdownTimeoutOption is set, it first waits up to
// that duration so existing handlers can finish; Close skips the wait.
//
// Monitoring events:
//   - Accepted: emitted for each accepted connection, carrying its handle
//   - AcceptFailed: emitted once when accepting fails for good
func (s *Server) Serve(ctx context.Context, handler Handler) error {
	s.logger.Info("server started", "addr", s.listener.Addr())

	done := make(chan struct{})
	defer close(done)

	// Watch for cancellation. The watcher also exits when Serve returns
	// for any other reason, so it never outlives this call.
	go func() {
		select {
		case <-ctx.Done():
		case <-s.shutdownNow:
			// Close() already shut the listener down.
			return
		case <-done:
			return
		}

		// Wait for the shutdown timeout if configured, but allow early exit via Close()
		if s.shutdownTimeout > 0 {
			s.logger.Info("graceful shutdown initiated", "timeout", s.shutdownTimeout)
			timer := time.NewTimer(s.shutdownTimeout)
			defer timer.Stop()

			select {
			case <-timer.C:
				// Timeout expired, proceed with shutdown
			case <-s.shutdownNow:
				s.logger.Debug("shutdown timeout bypassed via Close()")
			case <-done:
				return
			}
		}

		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		// Set a deadline to unblock Accept
		_ = s.listener.SetDeadline(time.Now())
	}()

	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			if s.isShutdown() {
				s.logger.Info("server stopped", "addr", s.listener.Addr())
				return ctx.Err()
			}

			// Deadline errors are retried; anything else ends Serve
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", "error", err)
			s.events.emit(monitor.KindAcceptFailed, errorCode(err), s.endpoint)
			return err
		}

		s.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())
		s.events.emit(monitor.KindAccepted, socketHandle(conn), s.endpoint)
		_ = conn.SetNoDelay(true)
		go handler.Handle(conn)
	}
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// Close stops the server by closing the underlying listener.
// If a shutdown timeout is pending, Close bypasses the rest of it.
// Any blocked Accept call returns with an error.
//
// Close emits Closed (or CloseFailed when the listener cannot be closed)
// followed by MonitorStopped. Safe to call multiple times; only the first
// call closes the listener and emits events.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// Wake every Serve watcher, whether it waits for the context or the timeout
	close(s.shutdownNow)

	err := s.listener.Close()
	if err != nil {
		s.events.emit(monitor.KindCloseFailed, errorCode(err), s.endpoint)
	} else {
		s.events.emit(monitor.KindClosed, s.handle, s.endpoint)
	}
	s.events.emit(monitor.KindMonitorStopped, 0, s.endpoint)

	return err
}

// Addr returns the listener's network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Handle returns the OS descriptor of the listener.
func (s *Server) Handle() int32 {
	return s.handle
}
