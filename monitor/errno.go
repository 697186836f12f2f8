package monitor

import (
	"fmt"
	"syscall"
)

// ErrorDescriptor describes a transport error code carried by the
// BindFailed, AcceptFailed and CloseFailed payloads.
type ErrorDescriptor struct {
	Code    int32
	Name    string // symbolic name such as "EADDRINUSE", empty when unknown
	Message string
}

func (d ErrorDescriptor) Error() string {
	if d.Name == "" {
		return fmt.Sprintf("%s (%d)", d.Message, d.Code)
	}
	return fmt.Sprintf("%s: %s (%d)", d.Name, d.Message, d.Code)
}

// LookupError resolves a transport error code to its description.
func LookupError(code int32) ErrorDescriptor {
	errno := syscall.Errno(uint32(code))
	return ErrorDescriptor{
		Code:    code,
		Name:    errnoName(errno),
		Message: errno.Error(),
	}
}
