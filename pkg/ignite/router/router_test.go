package router

import (
	"testing"

	"github.com/watt-toolkit/ignite/pkg/ignite/reqcore"
)

func noopHandler(tag string) reqcore.Handler {
	return func(req *reqcore.Request, resp reqcore.Responder) (reqcore.Outcome, error) {
		return reqcore.Outcome{}, nil
	}
}

func TestLongestPrefixNestedPrefixMatch(t *testing.T) {
	tr := New()
	tr.Add("/api/", noopHandler("api"))
	tr.Add("/api/v2/", noopHandler("api-v2"))

	route, ok := tr.LongestPrefix([]byte("/api/v2/widgets"))
	if !ok || route.Handler == nil {
		t.Fatal("expected a match")
	}
}

func TestLongestPrefixPicksMostSpecific(t *testing.T) {
	tr := New()
	var got string
	tr.Add("/static/", func(req *reqcore.Request, resp reqcore.Responder) (reqcore.Outcome, error) {
		got = "static"
		return reqcore.Outcome{}, nil
	})
	tr.Add("/static/images/", func(req *reqcore.Request, resp reqcore.Responder) (reqcore.Outcome, error) {
		got = "static-images"
		return reqcore.Outcome{}, nil
	})

	route, ok := tr.LongestPrefix([]byte("/static/images/logo.png"))
	if !ok {
		t.Fatal("expected a match")
	}
	route.Handler(nil, nil)
	if got != "static-images" {
		t.Fatalf("expected the more specific handler to win, got %q", got)
	}
}

func TestLongestPrefixNoMatch(t *testing.T) {
	tr := New()
	tr.Add("/api/", noopHandler("api"))

	if _, ok := tr.LongestPrefix([]byte("/other/path")); ok {
		t.Fatal("expected no match")
	}
}

func TestLongestPrefixRootHandler(t *testing.T) {
	tr := New()
	tr.Add("/", noopHandler("root"))
	tr.Add("/api/", noopHandler("api"))

	route, ok := tr.LongestPrefix([]byte("/whatever/unregistered"))
	if !ok || route.Handler == nil {
		t.Fatal("expected the root handler to serve as fallback")
	}
}

func TestAddReplacesExistingPrefix(t *testing.T) {
	tr := New()
	tr.Add("/api/", noopHandler("first"))
	var got string
	tr.Add("/api/", func(req *reqcore.Request, resp reqcore.Responder) (reqcore.Outcome, error) {
		got = "second"
		return reqcore.Outcome{}, nil
	})

	route, ok := tr.LongestPrefix([]byte("/api/x"))
	if !ok {
		t.Fatal("expected a match")
	}
	route.Handler(nil, nil)
	if got != "second" {
		t.Fatalf("expected replacement handler to win, got %q", got)
	}
}

func TestAddSplitsOnDivergingPrefix(t *testing.T) {
	tr := New()
	tr.Add("/api/users", noopHandler("users"))
	tr.Add("/api/usage", noopHandler("usage"))

	if _, ok := tr.LongestPrefix([]byte("/api/users/42")); !ok {
		t.Fatal("expected /api/users to match")
	}
	if _, ok := tr.LongestPrefix([]byte("/api/usage/today")); !ok {
		t.Fatal("expected /api/usage to match")
	}
	if _, ok := tr.LongestPrefix([]byte("/api/u")); ok {
		t.Fatal("expected no match for a path shorter than either registered prefix")
	}
}

func TestAddWithBodySetsAllowsBody(t *testing.T) {
	tr := New()
	tr.Add("/status", noopHandler("status"))
	tr.AddWithBody("/upload", noopHandler("upload"))

	status, ok := tr.LongestPrefix([]byte("/status"))
	if !ok || status.AllowsBody {
		t.Fatal("expected /status to not opt in to a POST body")
	}

	upload, ok := tr.LongestPrefix([]byte("/upload"))
	if !ok || !upload.AllowsBody {
		t.Fatal("expected /upload to opt in to a POST body")
	}
}
