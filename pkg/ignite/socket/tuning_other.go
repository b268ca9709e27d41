//go:build !linux && !darwin

package socket

func applyPlatformOptions(fd int, cfg Config) {}
