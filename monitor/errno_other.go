//go:build !(aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris)

package monitor

import "syscall"

func errnoName(syscall.Errno) string {
	return ""
}
