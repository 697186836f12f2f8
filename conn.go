// Package socket is a TCP server and connection framework whose sockets
// can report their lifecycle on a monitoring channel.
//
// Connections decode messages with a pluggable Codec and run separate
// read and write loops. When monitoring is enabled, servers and
// connections push events (listening, accepted, connected, disconnected,
// and their failures) that the monitor package decodes.
package socket

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Zereker/socketmon/monitor"
)

// Errors returned by connection operations.
var (
	// ErrInvalidCodec is returned when no codec is provided.
	ErrInvalidCodec = errors.New("invalid codec callback")
	// ErrInvalidOnMessage is returned when no message handler is provided.
	ErrInvalidOnMessage = errors.New("invalid on message callback")
	// ErrMessageTooLarge is returned when a message exceeds the maximum allowed size.
	ErrMessageTooLarge = errors.New("message too large")
	// ErrConnectionClosed is returned when operating on a closed connection.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrBufferFull is returned when the send buffer cannot take another message.
	ErrBufferFull = errors.New("send buffer full")
)

const (
	defaultBufferSize       = 1
	defaultMaxPackageLength = 1024 * 1024
	defaultHeartbeat        = 30 * time.Second
	defaultReconnectIvl     = 100 * time.Millisecond
)

// limitedReader caps how much a single Decode call may consume.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (n int, err error) {
	if l.remaining <= 0 {
		return 0, ErrMessageTooLarge
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err = l.r.Read(p)
	l.remaining -= int64(n)
	return
}

// Conn is one TCP connection with asynchronous read and write loops.
type Conn struct {
	rawConn *net.TCPConn
	limited *limitedReader
	logger  Logger
	opts    options

	handle   int32 // captured at creation; the descriptor is gone once closed
	endpoint string
	events   *eventSink

	sendMsg chan []byte
	closed  atomic.Bool

	mu     sync.Mutex // guards cancel
	cancel context.CancelFunc
}

// NewConn wraps an accepted TCP connection.
// Returns ErrInvalidCodec or ErrInvalidOnMessage when a required option is missing.
func NewConn(conn *net.TCPConn, opt ...Option) (*Conn, error) {
	opts, err := buildOptions(opt)
	if err != nil {
		return nil, err
	}
	return newClientConnWithOptions(conn, opts), nil
}

func buildOptions(opt []Option) (options, error) {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	return opts, checkOptions(&opts)
}

// checkOptions validates opts and fills in defaults.
func checkOptions(opts *options) error {
	if opts.codec == nil {
		return ErrInvalidCodec
	}
	if opts.onMessage == nil {
		return ErrInvalidOnMessage
	}

	if opts.bufferSize <= 0 {
		opts.bufferSize = defaultBufferSize
	}
	if opts.maxReadLength <= 0 {
		opts.maxReadLength = defaultMaxPackageLength
	}
	if opts.heartbeat <= 0 {
		opts.heartbeat = defaultHeartbeat
	}
	if opts.reconnectInterval <= 0 {
		opts.reconnectInterval = defaultReconnectIvl
	}
	if opts.onError == nil {
		opts.onError = func(error) ErrorAction { return Disconnect }
	}
	if opts.logger == nil {
		opts.logger = defaultLogger()
	}
	return nil
}

func newClientConnWithOptions(c *net.TCPConn, opts options) *Conn {
	return &Conn{
		rawConn: c,
		limited: &limitedReader{
			r:         bufio.NewReaderSize(c, opts.maxReadLength),
			remaining: int64(opts.maxReadLength),
		},
		logger:   opts.logger,
		opts:     opts,
		handle:   socketHandle(c),
		endpoint: endpointOf(c.RemoteAddr()),
		events:   newEventSink(opts.monitor, opts.monitorMask, opts.logger),
		sendMsg:  make(chan []byte, opts.bufferSize),
	}
}

// Run starts the connection's read and write loops.
// It runs them in two goroutines and blocks until one of them fails
// or the context is canceled. The connection is closed when Run returns,
// and a Disconnected event is emitted if monitoring is enabled.
//
// Returns ErrConnectionClosed without starting the loops if Close was
// called first.
func (c *Conn) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Publish cancel under the lock so a concurrent Close either sees it
	// or has already marked the connection closed.
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	c.cancel = cancel
	c.mu.Unlock()

	c.logger.Info("connection established", "addr", c.Addr())
	c.logger.Debug("connection options", "addr", c.Addr(),
		"buffer_size", c.opts.bufferSize,
		"max_read_length", c.opts.maxReadLength,
		"heartbeat", c.opts.heartbeat)

	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.readLoop(child)
	})
	group.Go(func() error {
		return c.writeLoop(child)
	})
	group.Go(func() error {
		<-child.Done()
		// Unblock a Decode that is waiting on the socket.
		_ = c.rawConn.SetReadDeadline(time.Now())
		return nil
	})

	err := group.Wait()
	c.closeConn()
	c.events.emit(monitor.KindDisconnected, c.handle, c.endpoint)

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Info("connection closed with error", "addr", c.Addr(), "error", err)
	} else {
		c.logger.Info("connection closed", "addr", c.Addr())
	}
	return err
}

// Close gracefully closes the connection.
// It cancels a running Run and closes the underlying TCP connection.
// Safe to call multiple times, and concurrently with Run.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed.Swap(true) {
		c.mu.Unlock()
		return nil // already closed
	}
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return c.rawConn.Close()
}

// IsClosed returns true if the connection has been closed.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// Handle returns the OS descriptor the connection had when it was created.
// The value stays the same after the connection is closed.
func (c *Conn) Handle() int32 {
	return c.handle
}

// Write sends a message without blocking (fire-and-forget).
// The message is encoded with the configured codec and queued for sending.
//
// Returns:
//   - nil: message was queued (not yet sent)
//   - ErrBufferFull: send buffer is full, message was NOT queued
//   - ErrConnectionClosed: connection is closed
//   - encoding error: if codec.Encode fails
//
// Use this method when:
//   - Dropping messages under backpressure is acceptable
//   - Blocking the caller is not
//
// For guaranteed delivery, use WriteBlocking or WriteTimeout instead.
func (c *Conn) Write(message Message) error {
	data, err := c.encode(message)
	if err != nil {
		return err
	}

	select {
	case c.sendMsg <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// WriteBlocking queues a message, blocking until there is buffer space
// or the context is done.
//
// Returns:
//   - nil: message was queued
//   - context.Canceled or context.DeadlineExceeded: ctx ended first
//   - ErrConnectionClosed: connection is closed
//   - encoding error: if codec.Encode fails
//
// Use this method when:
//   - Every message must be delivered
//   - The caller already carries a context with a deadline
func (c *Conn) WriteBlocking(ctx context.Context, message Message) error {
	data, err := c.encode(message)
	if err != nil {
		return err
	}

	select {
	case c.sendMsg <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WriteTimeout queues a message, waiting up to timeout for buffer space.
// It sits between Write (never waits) and WriteBlocking (waits on ctx).
//
// Returns:
//   - nil: message was queued
//   - ErrBufferFull: timeout expired before the message could be queued
//   - ErrConnectionClosed: connection is closed
//   - encoding error: if codec.Encode fails
//
// Use this method when:
//   - A bounded wait for buffer space is acceptable
//   - There is no context at hand
func (c *Conn) WriteTimeout(message Message, timeout time.Duration) error {
	data, err := c.encode(message)
	if err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c.sendMsg <- data:
		return nil
	case <-timer.C:
		return ErrBufferFull
	}
}

func (c *Conn) encode(message Message) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	return c.opts.codec.Encode(message)
}

// Addr returns the remote address of the connection.
func (c *Conn) Addr() net.Addr {
	return c.rawConn.RemoteAddr()
}

// readLoop continuously reads from the connection and hands each decoded
// message to the message handler.
// Returns when the context is canceled or an unrecoverable error occurs.
// Messages exceeding maxReadLength fail with ErrMessageTooLarge.
func (c *Conn) readLoop(ctx context.Context) error {
	for {
		// Checked after the deadline is set, so a shutdown deadline set
		// concurrently is never overwritten unnoticed.
		_ = c.rawConn.SetReadDeadline(time.Now().Add(c.opts.heartbeat * 2))
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Reset the limit for each message
		c.limited.remaining = int64(c.opts.maxReadLength)

		message, err := c.opts.codec.Decode(c.limited)
		if err != nil {
			// A read interrupted by shutdown is not a connection error
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Debug("read error", "addr", c.Addr(), "error", err)
			if c.opts.onError(err) == Disconnect {
				return err
			}
			continue
		}

		if err = c.opts.onMessage(message); err != nil {
			return err
		}
	}
}

// writeLoop sends queued messages until the context is canceled or a
// write fails with onError asking to disconnect.
func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-c.sendMsg:
			if err := c.write(data); err != nil {
				return err
			}
		}
	}
}

// write sends data with a deadline. Errors are returned only when
// onError asks to disconnect.
func (c *Conn) write(data []byte) error {
	_ = c.rawConn.SetWriteDeadline(time.Now().Add(c.opts.heartbeat * 2))

	if _, err := c.rawConn.Write(data); err != nil {
		c.logger.Debug("write error", "addr", c.Addr(), "error", err)
		if c.opts.onError(err) == Disconnect {
			return err
		}
	}
	return nil
}

// closeConn marks the connection as closed and closes the underlying TCP connection.
func (c *Conn) closeConn() {
	c.closed.Store(true)
	_ = c.rawConn.Close()
}
