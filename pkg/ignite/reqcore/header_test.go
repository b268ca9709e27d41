package reqcore

import "testing"

func TestHeaderAddGet(t *testing.T) {
	var h Header
	if err := h.Add([]byte("Host"), []byte("example.com")); err != nil {
		t.Fatal(err)
	}
	if v := h.Get([]byte("host")); string(v) != "example.com" {
		t.Fatalf("got %q", v)
	}
	if !h.Has([]byte("HOST")) {
		t.Fatal("expected Has to match case-insensitively")
	}
	if h.Get([]byte("Accept")) != nil {
		t.Fatal("expected nil for missing header")
	}
}

func TestHeaderOverflow(t *testing.T) {
	var h Header
	for i := 0; i < MaxHeaderSlots; i++ {
		if err := h.Add([]byte("X-A"), []byte("1")); err != nil {
			t.Fatalf("unexpected error at %d: %v", i, err)
		}
	}
	if err := h.Add([]byte("X-Overflow"), []byte("1")); err != ErrTooManyHeaders {
		t.Fatalf("expected ErrTooManyHeaders, got %v", err)
	}
}

func TestHeaderResetAndVisitAll(t *testing.T) {
	var h Header
	h.Add([]byte("A"), []byte("1"))
	h.Add([]byte("B"), []byte("2"))
	count := 0
	h.VisitAll(func(name, value []byte) { count++ })
	if count != 2 {
		t.Fatalf("got %d", count)
	}
	h.Reset()
	if h.Len() != 0 {
		t.Fatalf("expected reset to clear count")
	}
}
