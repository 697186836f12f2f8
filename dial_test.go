package socket

import (
	"context"
	"errors"
	"math"
	"net"
	"testing"
	"time"

	"github.com/Zereker/socketmon/monitor"
)

// closedPort returns a loopback address nothing listens on.
func closedPort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestDial_EmitsConnected(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer l.Close()

	ch := monitor.NewChannel(4)
	conn, err := Dial(context.Background(), l.Addr().String(),
		CustomCodecOption(&mockCodec{}),
		OnMessageOption(noopOnMessage),
		MonitorOption(ch, 0),
	)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	event := recvEvent(t, ch)
	if event.Payload != (monitor.Connected{Handle: conn.Handle()}) {
		t.Errorf("Payload = %#v, want Connected{Handle: %d}", event.Payload, conn.Handle())
	}
	if want := "tcp://" + l.Addr().String(); event.Address != want {
		t.Errorf("Address = %q, want %q", event.Address, want)
	}
}

func TestDial_MissingCodec(t *testing.T) {
	if _, err := Dial(context.Background(), "127.0.0.1:1", OnMessageOption(noopOnMessage)); err != ErrInvalidCodec {
		t.Errorf("expected ErrInvalidCodec, got %v", err)
	}
}

func TestDial_RetriesThenFails(t *testing.T) {
	addr := closedPort(t)
	ch := monitor.NewChannel(8)

	_, err := Dial(context.Background(), addr,
		CustomCodecOption(&mockCodec{}),
		OnMessageOption(noopOnMessage),
		MonitorOption(ch, 0),
		ReconnectIntervalOption(10*time.Millisecond),
		ReconnectAttemptsOption(1),
	)
	if err == nil {
		t.Fatal("expected dial error")
	}
	_ = ch.Close()

	want := []monitor.Payload{
		monitor.ConnectDelayed{},
		monitor.ConnectRetried{Interval: 10},
		monitor.ConnectDelayed{},
	}
	for i, w := range want {
		event := recvEvent(t, ch)
		if event.Payload != w {
			t.Errorf("event %d: Payload = %#v, want %#v", i, event.Payload, w)
		}
		if event.Address != "tcp://"+addr {
			t.Errorf("event %d: Address = %q, want tcp://%s", i, event.Address, addr)
		}
	}

	if _, err := monitor.RecvEvent(context.Background(), ch); !errors.Is(err, monitor.ErrChannelClosed) {
		t.Errorf("expected no more events, got err = %v", err)
	}
}

func TestDial_ContextCanceledDuringRetry(t *testing.T) {
	addr := closedPort(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Dial(ctx, addr,
		CustomCodecOption(&mockCodec{}),
		OnMessageOption(noopOnMessage),
		ReconnectIntervalOption(time.Minute),
		ReconnectAttemptsOption(-1),
	)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestReconnectDelay(t *testing.T) {
	base := 100 * time.Millisecond

	tests := []struct {
		max     time.Duration
		attempt int
		want    time.Duration
	}{
		{0, 1, base},
		{0, 5, base},
		{time.Second, 1, base},
		{time.Second, 2, 200 * time.Millisecond},
		{time.Second, 3, 400 * time.Millisecond},
		{time.Second, 4, 800 * time.Millisecond},
		{time.Second, 5, time.Second},
		{time.Second, 50, time.Second},
	}

	for _, tt := range tests {
		if got := reconnectDelay(base, tt.max, tt.attempt); got != tt.want {
			t.Errorf("reconnectDelay(%v, %v, %d) = %v, want %v", base, tt.max, tt.attempt, got, tt.want)
		}
	}
}

func TestReconnectDelay_LargeMax(t *testing.T) {
	max := time.Duration(math.MaxInt64)

	for attempt := 1; attempt <= 200; attempt++ {
		got := reconnectDelay(time.Second, max, attempt)
		if got <= 0 || got > max {
			t.Fatalf("reconnectDelay(1s, MaxInt64, %d) = %v, want within (0, max]", attempt, got)
		}
	}
	if got := reconnectDelay(time.Second, max, 200); got != max {
		t.Errorf("reconnectDelay(1s, MaxInt64, 200) = %v, want %v", got, max)
	}
}
