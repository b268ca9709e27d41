package socket

import (
	"net"
	"testing"
)

func TestApplyIgnoresNonTCPConn(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	if err := Apply(server, DefaultConfig()); err != nil {
		t.Fatalf("expected no error tuning a non-TCP conn, got %v", err)
	}
}

func TestApplyTunesTCPConn(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	server := <-accepted
	defer server.Close()

	if err := Apply(server, DefaultConfig()); err != nil {
		t.Fatalf("unexpected error tuning TCP conn: %v", err)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.NoDelay || !cfg.KeepAlive {
		t.Fatal("expected NoDelay and KeepAlive enabled by default")
	}
	if cfg.RecvBuffer <= 0 || cfg.SendBuffer <= 0 {
		t.Fatal("expected non-zero default buffer sizes")
	}
}
