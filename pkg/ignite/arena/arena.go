// Package arena provides a task-scoped bump allocator for the short-lived
// byte slices and key-value arrays a request decodes during its lifetime.
//
// Go's experimental arena package (goexperiment.arenas) is not available
// without a special toolchain build, so this is a real, non-experimental
// slab allocator: it carves fixed-size []byte slabs out of a sync.Pool and
// bump-allocates from the current slab until it's exhausted, at which point
// it takes (or allocates) the next one. Nothing here is freed field-by-field;
// the whole Arena is returned to the pool at once when the owning request
// is done with it.
package arena

import "sync"

// slabSize is the size of each backing allocation. Most requests decode a
// handful of short-lived KV arrays and a URL rewrite buffer or two; a single
// slab covers nearly all of them.
const slabSize = 16 * 1024

var slabPool = sync.Pool{
	New: func() any {
		b := make([]byte, slabSize)
		return &b
	},
}

// Arena is a bump allocator scoped to a single request's lifetime. It is
// not safe for concurrent use; a request is processed by exactly one
// goroutine at a time.
type Arena struct {
	slabs []*[]byte
	cur   *[]byte
	off   int
}

// Pool recycles Arenas (and, transitively, their slabs) across requests.
type Pool struct {
	pool sync.Pool
}

// NewPool creates an Arena pool.
func NewPool() *Pool {
	p := &Pool{}
	p.pool.New = func() any { return &Arena{} }
	return p
}

// Get returns a ready-to-use Arena, either freshly allocated or recycled
// from a previous request.
func (p *Pool) Get() *Arena {
	return p.pool.Get().(*Arena)
}

// Put resets the Arena, returns its slabs to the slab pool, and makes the
// Arena itself available for reuse.
func (p *Pool) Put(a *Arena) {
	a.Free()
	p.pool.Put(a)
}

// Alloc returns an n-byte slice carved out of the arena's current slab,
// falling back to a dedicated allocation when n exceeds slabSize (that slice
// is not tracked by the arena and bypasses the slab pool; the garbage
// collector reclaims it once it is no longer referenced).
func (a *Arena) Alloc(n int) []byte {
	if n > slabSize {
		b := make([]byte, n)
		return b
	}
	if a.cur == nil || a.off+n > len(*a.cur) {
		a.grow()
	}
	b := (*a.cur)[a.off : a.off+n : a.off+n]
	a.off += n
	return b
}

// AllocString copies s into an arena-owned byte slice and returns
// string(b); that conversion makes a second, heap-allocated copy, so the
// returned string does not alias arena memory.
func (a *Arena) AllocString(s string) string {
	b := a.Alloc(len(s))
	copy(b, s)
	return string(b)
}

// Clone copies src into a new arena-owned slice, mirroring the experimental
// arena package's Clone semantic: the caller gets a slice whose lifetime is
// bound to the arena rather than to src's original backing array.
func (a *Arena) Clone(src []byte) []byte {
	b := a.Alloc(len(src))
	copy(b, src)
	return b
}

func (a *Arena) grow() {
	s := slabPool.Get().(*[]byte)
	a.slabs = append(a.slabs, s)
	a.cur = s
	a.off = 0
}

// Free returns every slab the arena acquired back to the slab pool and
// resets the arena so it can be reused for the next request.
func (a *Arena) Free() {
	for _, s := range a.slabs {
		slabPool.Put(s)
	}
	a.slabs = a.slabs[:0]
	a.cur = nil
	a.off = 0
}
