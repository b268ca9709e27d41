package reqcore

import "sync"

// requestPool recycles *Request structs across connections, mirroring the
// teacher's GetRequest/PutRequest sync.Pool pair (http11/pool.go).
var requestPool = sync.Pool{New: func() any { return &Request{} }}

// GetRequest returns a ready-to-populate Request, either freshly allocated
// or recycled from a previous request's teardown.
func GetRequest() *Request {
	return requestPool.Get().(*Request)
}

// PutRequest resets and returns a Request to the pool.
func PutRequest(r *Request) {
	r.Reset()
	requestPool.Put(r)
}

// bufferPool recycles the fixed-size read buffers connections use for the
// request-line/header phase, matching the teacher's buffer pooling for
// DefaultBufferSize-sized slices.
var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, DefaultBufferSize)
		return &b
	},
}

// GetBuffer returns a pooled DefaultBufferSize byte slice.
func GetBuffer() []byte {
	return (*bufferPool.Get().(*[]byte))[:DefaultBufferSize]
}

// PutBuffer returns buf to the pool. buf must have been obtained from
// GetBuffer (or be of identical length) — a caller that grew the slice
// should not put it back, matching the teacher's same-size-only pool
// discipline.
func PutBuffer(buf []byte) {
	if cap(buf) != DefaultBufferSize {
		return
	}
	b := buf[:DefaultBufferSize]
	bufferPool.Put(&b)
}
