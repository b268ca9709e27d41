//go:build darwin

package socket

import "syscall"

// soNoSigpipe prevents the OS from raising SIGPIPE on a write to a
// half-closed socket; Linux callers use MSG_NOSIGNAL on send instead.
const soNoSigpipe = 0x1022

func applyPlatformOptions(fd int, cfg Config) {
	_ = syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, soNoSigpipe, 1)
}
