package reqcore

import (
	"errors"
	"testing"
)

type fakeResponder struct {
	lastStatus int
	calls      int
}

func (f *fakeResponder) EmitStatus(status int) error {
	f.lastStatus = status
	f.calls++
	return nil
}

type fakeRouter struct {
	routes map[string]Route
}

func (r *fakeRouter) LongestPrefix(path []byte) (Route, bool) {
	route, ok := r.routes[string(path)]
	return route, ok
}

func TestProcessRequestSimple(t *testing.T) {
	called := false
	router := &fakeRouter{routes: map[string]Route{
		"/hello": {Handler: func(req *Request, resp Responder) (Outcome, error) {
			called = true
			return Outcome{}, nil
		}},
	}}
	var req Request
	req.MethodID = MethodGET
	req.Path = []byte("/hello")
	resp := &fakeResponder{}

	if err := ProcessRequest(&req, resp, router, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("handler not invoked")
	}
	if resp.calls != 0 {
		t.Fatalf("expected no EmitStatus call, got %d", resp.calls)
	}
}

func TestProcessRequestNoRoute(t *testing.T) {
	router := &fakeRouter{routes: map[string]Route{}}
	var req Request
	req.MethodID = MethodGET
	req.Path = []byte("/missing")
	resp := &fakeResponder{}

	err := ProcessRequest(&req, resp, router, 4)
	if err != ErrNoRoute {
		t.Fatalf("got %v", err)
	}
	if resp.lastStatus != 404 {
		t.Fatalf("got status %d", resp.lastStatus)
	}
}

func TestProcessRequestRewriteFollowed(t *testing.T) {
	hits := 0
	router := &fakeRouter{routes: map[string]Route{
		"/": {Handler: func(req *Request, resp Responder) (Outcome, error) {
			hits++
			return Outcome{RewriteTo: []byte("/index.html")}, nil
		}},
		"/index.html": {Handler: func(req *Request, resp Responder) (Outcome, error) {
			hits++
			return Outcome{}, nil
		}},
	}}
	var req Request
	req.MethodID = MethodGET
	req.Path = []byte("/")
	resp := &fakeResponder{}

	if err := ProcessRequest(&req, resp, router, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != 2 {
		t.Fatalf("expected 2 handler invocations, got %d", hits)
	}
	if string(req.Path) != "/index.html" {
		t.Fatalf("expected path updated, got %q", req.Path)
	}
}

func TestProcessRequestRewriteLoopLimit(t *testing.T) {
	router := &fakeRouter{routes: map[string]Route{
		"/loop": {Handler: func(req *Request, resp Responder) (Outcome, error) {
			return Outcome{RewriteTo: []byte("/loop")}, nil
		}},
	}}
	var req Request
	req.MethodID = MethodGET
	req.Path = []byte("/loop")
	resp := &fakeResponder{}

	err := ProcessRequest(&req, resp, router, 4)
	if err != ErrTooManyRewrites {
		t.Fatalf("got %v", err)
	}
	if resp.lastStatus != 500 {
		t.Fatalf("got status %d", resp.lastStatus)
	}
}

func TestProcessRequestRejectsBodyWithoutPostOptIn(t *testing.T) {
	hit := false
	router := &fakeRouter{routes: map[string]Route{
		"/upload": {Handler: func(req *Request, resp Responder) (Outcome, error) {
			hit = true
			return Outcome{}, nil
		}, AllowsBody: false},
	}}
	var req Request
	req.MethodID = MethodGET
	req.Path = []byte("/upload")
	req.HasContentLength = true
	req.ContentLength = 10
	resp := &fakeResponder{}

	err := ProcessRequest(&req, resp, router, 4)
	if !errors.Is(err, ErrMethodNotAllowed) {
		t.Fatalf("got %v", err)
	}
	if resp.lastStatus != 405 {
		t.Fatalf("got %d", resp.lastStatus)
	}
	if hit {
		t.Fatal("handler should not run when body is rejected")
	}
}

func TestProcessRequestAllowsBodyWithPostOptIn(t *testing.T) {
	hit := false
	router := &fakeRouter{routes: map[string]Route{
		"/upload": {Handler: func(req *Request, resp Responder) (Outcome, error) {
			hit = true
			return Outcome{}, nil
		}, AllowsBody: true},
	}}
	var req Request
	req.MethodID = MethodPOST
	req.Path = []byte("/upload")
	req.HasContentLength = true
	req.ContentLength = 10
	resp := &fakeResponder{}

	if err := ProcessRequest(&req, resp, router, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hit {
		t.Fatal("handler not invoked")
	}
}
