package reqcore

import (
	"github.com/watt-toolkit/ignite/pkg/ignite/arena"
	"github.com/watt-toolkit/ignite/pkg/ignite/bodystore"
)

// Body is the ingested request body: either an arena-owned slice (small
// bodies) or an mmap'd bodystore.Store (bodies at or above
// SmallBodyThreshold). Exactly one of the two is non-nil.
type Body struct {
	arenaBytes []byte
	store      *bodystore.Store
}

// Bytes returns the body's bytes, regardless of which backing was used.
func (b *Body) Bytes() []byte {
	if b.store != nil {
		return b.store.Bytes()
	}
	return b.arenaBytes
}

// Close releases the bodystore backing, if one was used. Arena-backed
// bodies are released when the arena itself is freed at end of request.
func (b *Body) Close() error {
	if b.store != nil {
		err := b.store.Close()
		b.store = nil
		return err
	}
	return nil
}

// IngestBody reads exactly contentLength bytes of a request body from
// conn via sr, choosing the backing store by size: small bodies are
// arena-allocated (cheap, freed in bulk with the rest of the request's
// scratch memory); large bodies get an mmap'd temp file so a handful of
// big uploads can't force the Go heap to grow, matching this module's
// spec for component F (body ingest). preread is any body bytes that
// already arrived bundled with the header block's socket read; it is
// copied into the destination before reading the remainder, so the bytes
// are never double-read.
func IngestBody(sr *SocketReader, contentLength int64, maxPostDataSize int64, a *arena.Arena, tmpdir string, preread []byte) (*Body, error) {
	if contentLength > maxPostDataSize {
		return nil, ErrBodyTooLarge
	}
	n := int(contentLength)
	if len(preread) > n {
		preread = preread[:n]
	}

	if contentLength < SmallBodyThreshold {
		buf := a.Alloc(n)
		if err := fillExactly(sr, buf, preread); err != nil {
			return nil, err
		}
		return &Body{arenaBytes: buf}, nil
	}

	store, err := bodystore.New(n, tmpdir)
	if err != nil {
		return nil, newStatus(KindInternal, "body", err)
	}
	if err := fillExactly(sr, store.Bytes(), preread); err != nil {
		store.Close()
		return nil, err
	}
	return &Body{store: store}, nil
}

func fillExactly(sr *SocketReader, buf []byte, preread []byte) error {
	if len(buf) == 0 {
		return nil
	}
	n := copy(buf, preread)
	if n >= len(buf) {
		return nil
	}
	_, _, err := sr.FillFrom(buf, n, FixedLengthFinalizer(len(buf)))
	return err
}
