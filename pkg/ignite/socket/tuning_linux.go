//go:build linux

package socket

import "syscall"

// TCP_QUICKACK is not exposed by the syscall package on every Go release,
// so it is declared here (matches its value in linux/tcp.h).
const tcpQuickAck = 12

func applyPlatformOptions(fd int, cfg Config) {
	if cfg.QuickAck {
		_ = syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpQuickAck, 1)
	}
}
