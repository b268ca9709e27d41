package reqcore

import "errors"

// Kind classifies a request-ingest failure so a caller can decide whether
// to emit a response and keep the connection alive, emit a response and
// close, or abandon the connection without attempting a response at all.
type Kind int

const (
	// KindBadRequest covers malformed request lines, headers, or bodies.
	// The caller should emit 400 and may keep the connection alive if a
	// clean request boundary was found.
	KindBadRequest Kind = iota
	// KindNotAllowed is returned for well-formed requests using a method
	// this module does not recognize, or declaring a body on anything but
	// a POST to a route that accepts one (Route.AllowsBody).
	KindNotAllowed
	// KindTooLarge covers request lines, header blocks, or bodies that
	// exceed a configured limit.
	KindTooLarge
	// KindTimeout covers a socket read/write that exceeded its deadline.
	KindTimeout
	// KindInternal covers allocation, mmap, or temp-file failures that are
	// not the client's fault.
	KindInternal
)

// Status wraps a parsing or ingest failure with the Kind the caller needs
// to pick a response, and the component name that produced it (used only
// for logging).
type Status struct {
	Kind      Kind
	Component string
	Err       error
}

func (s *Status) Error() string {
	return s.Component + ": " + s.Err.Error()
}

func (s *Status) Unwrap() error { return s.Err }

func newStatus(kind Kind, component string, err error) *Status {
	return &Status{Kind: kind, Component: component, Err: err}
}

// Sentinel errors, grouped by the component that raises them. Matching the
// flat sentinel-error style used throughout this codebase rather than a
// hierarchy of custom types: each failure mode is either recoverable (skip
// to next request) or fatal (abandon connection), and callers branch on
// errors.Is, not on a type switch.
var (
	// Request-line errors.
	ErrRequestLineTooLong = errors.New("reqcore: request line exceeds configured limit")
	ErrMalformedRequestLine = errors.New("reqcore: request line is not METHOD SP URI SP VERSION")
	ErrUnsupportedMethod  = errors.New("reqcore: method is not recognized")
	ErrUnsupportedVersion = errors.New("reqcore: HTTP version is not 1.0 or 1.1")
	ErrInvalidURI         = errors.New("reqcore: request URI is malformed")

	// Header errors.
	ErrTooManyHeaders     = errors.New("reqcore: header count exceeds configured limit")
	ErrHeadersTooLarge    = errors.New("reqcore: header block exceeds configured limit")
	ErrMalformedHeader    = errors.New("reqcore: header line has no colon separator, or its Content-Length value is invalid")
	ErrWhitespaceBeforeColon = errors.New("reqcore: whitespace before header colon")
	ErrDuplicateHost      = errors.New("reqcore: more than one Host header present")
	ErrAmbiguousFraming   = errors.New("reqcore: conflicting Content-Length and Transfer-Encoding")
	ErrDuplicateContentLength = errors.New("reqcore: multiple Content-Length values disagree")

	// Body errors.
	ErrBodyTooLarge = errors.New("reqcore: request body exceeds MaxPostDataSize")
	ErrBodyIO       = errors.New("reqcore: failed reading request body")

	// Connection/IO errors.
	ErrConnectionClosed = errors.New("reqcore: connection closed by peer")
	ErrReadTimeout      = errors.New("reqcore: read deadline exceeded")
	ErrBufferExhausted  = errors.New("reqcore: request did not fit in read buffer")

	// Driver errors.
	ErrTooManyRewrites  = errors.New("reqcore: URL rewrite loop exceeded configured limit")
	ErrNoRoute          = errors.New("reqcore: no route matched the request path")
	ErrMethodNotAllowed = errors.New("reqcore: method not recognized, or a body was sent to a route that does not accept one")

	// PROXY protocol errors.
	ErrProxyHeaderTooLong   = errors.New("reqcore: PROXY v1 header exceeds 107 bytes")
	ErrProxyMalformed       = errors.New("reqcore: PROXY header is malformed")
	ErrProxyUnknownFamily   = errors.New("reqcore: PROXY header names an unsupported address family")
	ErrProxyBadSignature    = errors.New("reqcore: PROXY v2 signature mismatch")
	ErrProxyPayloadTooShort = errors.New("reqcore: PROXY v2 payload shorter than declared length")
)
