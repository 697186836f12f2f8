// Package monitor decodes socket-lifetime monitoring events.
//
// A monitored socket pushes one two-frame message per lifecycle
// occurrence onto its monitoring channel. The first frame carries a
// 16-bit event kind followed by a 32-bit value, both in native byte
// order. The second frame carries the endpoint address as text.
// The meaning of the value depends on the kind: a socket handle,
// a reconnect interval, a transport error code, or nothing at all.
package monitor

import "fmt"

// Kind identifies the category of a lifecycle event.
type Kind uint16

// Event kinds emitted by a monitored socket.
const (
	KindConnected      Kind = 0x0001
	KindConnectDelayed Kind = 0x0002
	KindConnectRetried Kind = 0x0004
	KindListening      Kind = 0x0008
	KindBindFailed     Kind = 0x0010
	KindAccepted       Kind = 0x0020
	KindAcceptFailed   Kind = 0x0040
	KindClosed         Kind = 0x0080
	KindCloseFailed    Kind = 0x0100
	KindDisconnected   Kind = 0x0200
	KindMonitorStopped Kind = 0x0400

	// KindAll selects every recognized kind when used as an event mask.
	KindAll = KindConnected | KindConnectDelayed | KindConnectRetried |
		KindListening | KindBindFailed | KindAccepted | KindAcceptFailed |
		KindClosed | KindCloseFailed | KindDisconnected | KindMonitorStopped
)

var kindNames = map[Kind]string{
	KindConnected:      "connected",
	KindConnectDelayed: "connect_delayed",
	KindConnectRetried: "connect_retried",
	KindListening:      "listening",
	KindBindFailed:     "bind_failed",
	KindAccepted:       "accepted",
	KindAcceptFailed:   "accept_failed",
	KindClosed:         "closed",
	KindCloseFailed:    "close_failed",
	KindDisconnected:   "disconnected",
	KindMonitorStopped: "monitor_stopped",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%#04x)", uint16(k))
}

// Event is one decoded monitoring notification.
type Event struct {
	// Kind is the raw event kind, preserved even when it is not recognized.
	Kind Kind
	// Address is the endpoint the monitored socket is associated with.
	Address string
	// Payload holds the kind-specific detail.
	Payload Payload
}

// Payload is the kind-specific detail of an Event. The set of
// implementations is closed; switch on the concrete type.
type Payload interface {
	// Kind returns the event kind this payload belongs to.
	// Unknown returns 0.
	Kind() Kind
	payload()
}

// Connected reports an outgoing connection that was established.
type Connected struct {
	Handle int32
}

// ConnectDelayed reports a connect attempt that did not complete immediately.
type ConnectDelayed struct{}

// ConnectRetried reports that a reconnect is scheduled after Interval milliseconds.
type ConnectRetried struct {
	Interval int32
}

// Listening reports a socket bound to its address.
type Listening struct {
	Handle int32
}

// BindFailed reports a bind that the transport could not complete.
type BindFailed struct {
	Err ErrorDescriptor
}

// Accepted reports an incoming connection.
type Accepted struct {
	Handle int32
}

// AcceptFailed reports an accept that the transport could not complete.
type AcceptFailed struct {
	Err ErrorDescriptor
}

// Closed reports a closed handle.
type Closed struct {
	Handle int32
}

// CloseFailed reports a close that the transport could not complete.
type CloseFailed struct {
	Err ErrorDescriptor
}

// Disconnected reports a connection that was broken.
type Disconnected struct {
	Handle int32
}

// MonitorStopped is the last event a Server emits on its monitoring channel.
// Events from connections that share the channel may still follow it.
type MonitorStopped struct{}

// Unknown is the payload of any kind this package does not recognize.
// The raw code remains available in Event.Kind.
type Unknown struct{}

func (Connected) Kind() Kind      { return KindConnected }
func (ConnectDelayed) Kind() Kind { return KindConnectDelayed }
func (ConnectRetried) Kind() Kind { return KindConnectRetried }
func (Listening) Kind() Kind      { return KindListening }
func (BindFailed) Kind() Kind     { return KindBindFailed }
func (Accepted) Kind() Kind       { return KindAccepted }
func (AcceptFailed) Kind() Kind   { return KindAcceptFailed }
func (Closed) Kind() Kind         { return KindClosed }
func (CloseFailed) Kind() Kind    { return KindCloseFailed }
func (Disconnected) Kind() Kind   { return KindDisconnected }
func (MonitorStopped) Kind() Kind { return KindMonitorStopped }
func (Unknown) Kind() Kind        { return 0 }

func (Connected) payload()      {}
func (ConnectDelayed) payload() {}
func (ConnectRetried) payload() {}
func (Listening) payload()      {}
func (BindFailed) payload()     {}
func (Accepted) payload()       {}
func (AcceptFailed) payload()   {}
func (Closed) payload()         {}
func (CloseFailed) payload()    {}
func (Disconnected) payload()   {}
func (MonitorStopped) payload() {}
func (Unknown) payload()        {}
