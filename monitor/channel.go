package monitor

import (
	"context"
	"errors"
	"sync"
)

// Errors returned by Channel operations.
var (
	// ErrChannelFull is returned when the channel buffer cannot take another message.
	ErrChannelFull = errors.New("monitor: channel full")
	// ErrChannelClosed is returned after Close, once buffered messages are drained.
	ErrChannelClosed = errors.New("monitor: channel closed")
)

const defaultChannelSize = 64

// Channel is an in-process monitoring channel. Monitored sockets push
// raw event messages with Send; consumers read them with RecvFrames,
// usually through RecvEvent or TryRecvEvent.
type Channel struct {
	messages chan [][]byte

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewChannel creates a channel buffering up to size messages.
// A size of zero or less selects the default of 64.
func NewChannel(size int) *Channel {
	if size <= 0 {
		size = defaultChannelSize
	}
	return &Channel{
		messages: make(chan [][]byte, size),
		done:     make(chan struct{}),
	}
}

// Send queues one message without blocking.
func (c *Channel) Send(frames [][]byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrChannelClosed
	}

	select {
	case c.messages <- frames:
		return nil
	default:
		return ErrChannelFull
	}
}

// RecvFrames blocks until a message is available, ctx is done, or the
// channel is closed and empty.
func (c *Channel) RecvFrames(ctx context.Context) ([][]byte, error) {
	select {
	case frames := <-c.messages:
		return frames, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
	}

	// Drain what was queued before Close.
	select {
	case frames := <-c.messages:
		return frames, nil
	default:
		return nil, ErrChannelClosed
	}
}

// Close stops accepting messages. Messages already queued can still be
// received. Safe to call multiple times.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return nil
}
