package socket

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Zereker/socketmon/monitor"
)

func TestOptions(t *testing.T) {
	codec := &mockCodec{}
	logger := slog.Default()
	ch := monitor.NewChannel(1)
	errorCalled := false

	opts, err := buildOptions([]Option{
		CustomCodecOption(codec),
		OnMessageOption(noopOnMessage),
		OnErrorOption(func(error) ErrorAction {
			errorCalled = true
			return Continue
		}),
		BufferSizeOption(100),
		HeartbeatOption(45 * time.Second),
		MessageMaxSize(4096),
		LoggerOption(logger),
		MonitorOption(ch, monitor.KindConnected|monitor.KindDisconnected),
		ReconnectIntervalOption(250 * time.Millisecond),
		ReconnectIntervalMaxOption(time.Second),
		ReconnectAttemptsOption(3),
	})
	if err != nil {
		t.Fatalf("buildOptions failed: %v", err)
	}

	if opts.codec != codec {
		t.Error("codec not set correctly")
	}
	if opts.bufferSize != 100 {
		t.Errorf("bufferSize = %d, want 100", opts.bufferSize)
	}
	if opts.heartbeat != 45*time.Second {
		t.Errorf("heartbeat = %v, want 45s", opts.heartbeat)
	}
	if opts.maxReadLength != 4096 {
		t.Errorf("maxReadLength = %d, want 4096", opts.maxReadLength)
	}
	if opts.logger != logger {
		t.Error("logger not set correctly")
	}
	if opts.monitor != ch || opts.monitorMask != monitor.KindConnected|monitor.KindDisconnected {
		t.Errorf("monitor = %p/%v, want %p/connected|disconnected", opts.monitor, opts.monitorMask, ch)
	}
	if opts.reconnectInterval != 250*time.Millisecond {
		t.Errorf("reconnectInterval = %v, want 250ms", opts.reconnectInterval)
	}
	if opts.reconnectIntervalMax != time.Second {
		t.Errorf("reconnectIntervalMax = %v, want 1s", opts.reconnectIntervalMax)
	}
	if opts.reconnectAttempts != 3 {
		t.Errorf("reconnectAttempts = %d, want 3", opts.reconnectAttempts)
	}

	if opts.onError(errors.New("boom")) != Continue || !errorCalled {
		t.Error("onError not set correctly")
	}
}

func TestServerOptions(t *testing.T) {
	ch := monitor.NewChannel(4)
	logger := slog.Default()

	server, err := New(loopback(),
		ServerLoggerOption(logger),
		ServerShutdownTimeoutOption(time.Second),
		ServerMonitorOption(ch, monitor.KindClosed),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer server.Close()

	if server.logger != logger {
		t.Error("logger not set correctly")
	}
	if server.shutdownTimeout != time.Second {
		t.Errorf("shutdownTimeout = %v, want 1s", server.shutdownTimeout)
	}
	if server.events == nil || server.events.mask != monitor.KindClosed {
		t.Error("monitor not configured")
	}
}
