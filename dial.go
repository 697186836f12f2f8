package socket

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/Zereker/socketmon/monitor"
)

// Dial connects to addr over TCP and wraps the connection like NewConn.
//
// A failed attempt emits ConnectDelayed. When retries remain, Dial emits
// ConnectRetried with the delay in milliseconds, waits, and tries again.
// The first successful attempt emits Connected with the new handle.
func Dial(ctx context.Context, addr string, opt ...Option) (*Conn, error) {
	opts, err := buildOptions(opt)
	if err != nil {
		return nil, err
	}

	events := newEventSink(opts.monitor, opts.monitorMask, opts.logger)
	endpoint := "tcp://" + addr

	var dialer net.Dialer
	for attempt := 1; ; attempt++ {
		raw, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn := newClientConnWithOptions(raw.(*net.TCPConn), opts)
			events.emit(monitor.KindConnected, conn.handle, endpoint)
			return conn, nil
		}

		opts.logger.Debug("dial failed", "addr", addr, "attempt", attempt, "error", err)
		events.emit(monitor.KindConnectDelayed, 0, endpoint)

		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "dial %s", addr)
		}
		if opts.reconnectAttempts >= 0 && attempt > opts.reconnectAttempts {
			return nil, errors.Wrapf(err, "dial %s", addr)
		}

		delay := reconnectDelay(opts.reconnectInterval, opts.reconnectIntervalMax, attempt)
		events.emit(monitor.KindConnectRetried, int32(delay/time.Millisecond), endpoint)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Wrapf(ctx.Err(), "dial %s", addr)
		}
	}
}

// reconnectDelay returns the delay before retry number attempt (1-based).
// The base interval doubles per attempt up to max; a zero max keeps it constant.
func reconnectDelay(base, max time.Duration, attempt int) time.Duration {
	if max <= 0 || attempt <= 1 {
		return base
	}

	delay := base
	for i := 1; i < attempt; i++ {
		// Clamp before doubling so the delay cannot overflow.
		if delay > max/2 {
			return max
		}
		delay *= 2
	}
	return delay
}
