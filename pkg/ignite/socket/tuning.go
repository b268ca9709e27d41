// Package socket applies platform socket tuning to accepted connections:
// TCP_NODELAY, buffer sizing, and keepalive, with Linux/Darwin-specific
// extras layered on top where the kernel exposes them. Adapted from
// shockwave/pkg/shockwave/socket/tuning*.go, trimmed to the options this
// module's connection accept path actually applies.
package socket

import (
	"net"
	"syscall"
)

// Config controls the socket options Apply sets on an accepted
// connection. Zero value means "use OS defaults" for every field.
type Config struct {
	// NoDelay disables Nagle's algorithm. Request/response HTTP traffic
	// is latency-sensitive and rarely benefits from Nagle coalescing.
	NoDelay bool

	// RecvBuffer and SendBuffer override SO_RCVBUF/SO_SNDBUF when > 0.
	RecvBuffer int
	SendBuffer int

	// KeepAlive enables SO_KEEPALIVE so dead peers are eventually reaped
	// even when the application layer never detects the drop.
	KeepAlive bool

	// QuickAck requests TCP_QUICKACK where the platform supports it
	// (Linux only; ignored elsewhere).
	QuickAck bool
}

// DefaultConfig returns the tuning this module applies to every accepted
// connection unless the caller overrides it.
func DefaultConfig() Config {
	return Config{
		NoDelay:    true,
		RecvBuffer: 256 * 1024,
		SendBuffer: 256 * 1024,
		KeepAlive:  true,
		QuickAck:   true,
	}
}

// Apply tunes conn according to cfg. Only *net.TCPConn can be tuned;
// Apply is a silent no-op for any other net.Conn implementation (e.g. in
// tests that use net.Pipe).
func Apply(conn net.Conn, cfg Config) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return err
	}

	var applyErr error
	ctrlErr := rawConn.Control(func(fd uintptr) {
		if cfg.NoDelay {
			if err := syscall.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1); err != nil {
				applyErr = err
				return
			}
		}
		if cfg.RecvBuffer > 0 {
			_ = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_RCVBUF, cfg.RecvBuffer)
		}
		if cfg.SendBuffer > 0 {
			_ = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_SNDBUF, cfg.SendBuffer)
		}
		if cfg.KeepAlive {
			_ = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_KEEPALIVE, 1)
		}
		applyPlatformOptions(int(fd), cfg)
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return applyErr
}
