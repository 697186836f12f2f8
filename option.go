package socket

import (
	"time"

	"github.com/Zereker/socketmon/monitor"
)

// ErrorAction defines the action to take when an error occurs.
type ErrorAction int

const (
	// Disconnect closes the connection when an error occurs.
	Disconnect ErrorAction = iota
	// Continue suppresses the error and continues processing.
	Continue
)

// options holds the configuration for a connection.
type options struct {
	codec  Codec
	logger Logger

	onMessage func(message Message) error
	// Returns Disconnect to close the connection, Continue to suppress the error.
	onError func(error) ErrorAction

	bufferSize    int           // size of buffered send channel
	maxReadLength int           // maximum size of a single message
	heartbeat     time.Duration // read/write deadlines are heartbeat * 2

	monitor     *monitor.Channel
	monitorMask monitor.Kind

	reconnectInterval    time.Duration
	reconnectIntervalMax time.Duration
	reconnectAttempts    int // retries after the first failed dial
}

// Option is a function that configures connection options.
type Option func(*options)

// CustomCodecOption sets the message codec. Required.
func CustomCodecOption(codec Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// BufferSizeOption sets the size of the send channel buffer.
func BufferSizeOption(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// HeartbeatOption sets the heartbeat interval.
// Read and write deadlines are set to twice this value.
func HeartbeatOption(heartbeat time.Duration) Option {
	return func(o *options) {
		o.heartbeat = heartbeat
	}
}

// MessageMaxSize sets the maximum size of a single received message.
func MessageMaxSize(size int) Option {
	return func(o *options) {
		o.maxReadLength = size
	}
}

// OnErrorOption sets the callback invoked on read/write errors.
// Return Disconnect to close the connection, or Continue to suppress the error.
func OnErrorOption(cb func(error) ErrorAction) Option {
	return func(o *options) {
		o.onError = cb
	}
}

// OnMessageOption sets the handler invoked for each received message. Required.
func OnMessageOption(cb func(Message) error) Option {
	return func(o *options) {
		o.onMessage = cb
	}
}

// LoggerOption sets the logger. Defaults to slog.Default().
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// MonitorOption enables socket monitoring. Events whose kind is in mask
// are pushed onto ch; a zero mask selects monitor.KindAll.
func MonitorOption(ch *monitor.Channel, mask monitor.Kind) Option {
	return func(o *options) {
		o.monitor = ch
		o.monitorMask = mask
	}
}

// ReconnectIntervalOption sets the delay before the first redial in Dial.
// Later delays double up to ReconnectIntervalMaxOption.
func ReconnectIntervalOption(interval time.Duration) Option {
	return func(o *options) {
		o.reconnectInterval = interval
	}
}

// ReconnectIntervalMaxOption caps the redial delay in Dial.
// Zero keeps the interval constant.
func ReconnectIntervalMaxOption(max time.Duration) Option {
	return func(o *options) {
		o.reconnectIntervalMax = max
	}
}

// ReconnectAttemptsOption sets how many times Dial retries after the
// first failed attempt. Negative retries until the context is done.
func ReconnectAttemptsOption(n int) Option {
	return func(o *options) {
		o.reconnectAttempts = n
	}
}
