package reqcore

import (
	"net"
	"testing"
	"time"

	"github.com/watt-toolkit/ignite/pkg/ignite/arena"
)

type recordingResponder struct {
	statuses []int
}

func (r *recordingResponder) EmitStatus(status int) error {
	r.statuses = append(r.statuses, status)
	return nil
}

func newTestConnection(t *testing.T, server net.Conn, router Router) (*Connection, *recordingResponder) {
	t.Helper()
	resp := &recordingResponder{}
	cfg := DefaultConfig()
	cfg.KeepAliveTimeout = 2 * time.Second
	c := NewConnection(server, cfg, router, func(net.Conn) Responder { return resp }, arena.NewPool(), nil)
	return c, resp
}

func TestConnectionServeSingleRequest(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	hit := false
	router := &fakeRouter{routes: map[string]Route{
		"/": {Handler: func(req *Request, resp Responder) (Outcome, error) {
			hit = true
			resp.EmitStatus(200)
			return Outcome{}, nil
		}},
	}}
	c, resp := newTestConnection(t, server, router)

	done := make(chan error, 1)
	go func() { done <- c.Serve() }()

	client.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Serve to return")
	}
	if !hit {
		t.Fatal("handler was not invoked")
	}
	if len(resp.statuses) != 1 || resp.statuses[0] != 200 {
		t.Fatalf("got statuses %v", resp.statuses)
	}
}

func TestConnectionServePipelinedRequests(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	hits := 0
	router := &fakeRouter{routes: map[string]Route{
		"/a": {Handler: func(req *Request, resp Responder) (Outcome, error) {
			hits++
			resp.EmitStatus(200)
			return Outcome{}, nil
		}},
		"/b": {Handler: func(req *Request, resp Responder) (Outcome, error) {
			hits++
			resp.EmitStatus(200)
			return Outcome{}, nil
		}},
	}}
	c, resp := newTestConnection(t, server, router)

	done := make(chan error, 1)
	go func() { done <- c.Serve() }()

	client.Write([]byte(
		"GET /a HTTP/1.1\r\nHost: x\r\n\r\n" +
			"GET /b HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Serve to return")
	}
	if hits != 2 {
		t.Fatalf("expected 2 handler invocations, got %d", hits)
	}
	if len(resp.statuses) != 2 {
		t.Fatalf("got statuses %v", resp.statuses)
	}
}

func TestConnectionServeBadRequestLine(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	router := &fakeRouter{routes: map[string]Route{}}
	c, resp := newTestConnection(t, server, router)

	done := make(chan error, 1)
	go func() { done <- c.Serve() }()

	client.Write([]byte("NOTAMETHOD / HTTP/1.1\r\n\r\n"))

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	if len(resp.statuses) != 1 || resp.statuses[0] != 405 {
		t.Fatalf("got statuses %v", resp.statuses)
	}
}
