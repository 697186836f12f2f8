package socket

import (
	"encoding/binary"
	"errors"
	"net"
	"syscall"

	"github.com/Zereker/socketmon/monitor"
)

// eventSink pushes monitoring events for one socket onto its channel.
// A nil sink or nil channel emits nothing.
type eventSink struct {
	ch     *monitor.Channel
	mask   monitor.Kind
	logger Logger
}

func newEventSink(ch *monitor.Channel, mask monitor.Kind, logger Logger) *eventSink {
	if ch == nil {
		return nil
	}
	if mask == 0 {
		mask = monitor.KindAll
	}
	return &eventSink{ch: ch, mask: mask, logger: logger}
}

// emit writes [details, address]. Details are the kind followed by the
// value, native byte order, no padding.
func (s *eventSink) emit(kind monitor.Kind, value int32, endpoint string) {
	if s == nil || s.mask&kind == 0 {
		return
	}

	details := make([]byte, monitor.DetailsSize)
	binary.NativeEndian.PutUint16(details[0:2], uint16(kind))
	binary.NativeEndian.PutUint32(details[2:6], uint32(value))

	if err := s.ch.Send([][]byte{details, []byte(endpoint)}); err != nil {
		s.logger.Debug("monitor event dropped", "event", kind, "endpoint", endpoint, "error", err)
	}
}

// endpointOf formats addr the way monitoring events name endpoints.
func endpointOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.Network() + "://" + addr.String()
}

// socketHandle returns the OS descriptor behind c, or -1.
func socketHandle(c syscall.Conn) int32 {
	raw, err := c.SyscallConn()
	if err != nil {
		return -1
	}

	handle := int32(-1)
	if err := raw.Control(func(fd uintptr) { handle = int32(fd) }); err != nil {
		return -1
	}
	return handle
}

// errorCode extracts the errno carried by err, falling back to EIO.
func errorCode(err error) int32 {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int32(errno)
	}
	return int32(syscall.EIO)
}
