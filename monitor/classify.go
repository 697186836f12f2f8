package monitor

// Classify maps an event kind and its raw value to the matching payload.
// It is total: kinds that are not recognized yield Unknown, whatever the value.
func Classify(kind Kind, value int32) Payload {
	switch kind {
	case KindConnectRetried:
		return ConnectRetried{Interval: value}
	case KindListening:
		return Listening{Handle: value}
	case KindConnected:
		return Connected{Handle: value}
	case KindAccepted:
		return Accepted{Handle: value}
	case KindClosed:
		return Closed{Handle: value}
	case KindDisconnected:
		return Disconnected{Handle: value}
	case KindBindFailed:
		return BindFailed{Err: LookupError(value)}
	case KindAcceptFailed:
		return AcceptFailed{Err: LookupError(value)}
	case KindCloseFailed:
		return CloseFailed{Err: LookupError(value)}
	case KindConnectDelayed:
		return ConnectDelayed{}
	case KindMonitorStopped:
		return MonitorStopped{}
	default:
		return Unknown{}
	}
}
