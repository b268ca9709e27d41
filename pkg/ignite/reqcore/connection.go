package reqcore

import (
	"net"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/watt-toolkit/ignite/pkg/ignite/arena"
)

// ConnectionState mirrors the teacher's lock-free connection state
// machine (http11/connection.go), generalized to cover the PROXY-preface
// phase this module's spec adds ahead of the first request.
type ConnectionState int32

const (
	StateNew ConnectionState = iota
	StateActive
	StateIdle
	StateClosed
)

// ResponderFactory wraps a net.Conn into the Responder a Handler uses to
// answer a request. Kept as a collaborator, not a concrete type, so this
// package stays agnostic about response serialization (SPEC_FULL.md §6).
type ResponderFactory func(conn net.Conn) Responder

// Connection drives one accepted socket through an optional PROXY-preface
// check, then a keep-alive loop of tokenize -> route -> handle cycles,
// matching the teacher's Connection.Serve() loop structure
// (http11/connection.go) generalized for this module's PROXY-protocol and
// URL-rewrite additions.
type Connection struct {
	state    atomic.Int32
	requests atomic.Int32
	closed   atomic.Bool

	conn         net.Conn
	config       Config
	router       Router
	newResponder ResponderFactory
	arenaPool    *arena.Pool
	log          *zap.Logger

	buf []byte
	// unread holds bytes read past the current request's boundary
	// (pipelining) so the next loop iteration seeds its read with them
	// instead of re-reading the socket, matching parser.go's unreadBuf.
	unread []byte

	proxy *ProxyInfo
}

// NewConnection wires a freshly accepted net.Conn into a Connection ready
// to Serve.
func NewConnection(conn net.Conn, config Config, router Router, newResponder ResponderFactory, arenaPool *arena.Pool, log *zap.Logger) *Connection {
	if log == nil {
		log = zap.NewNop()
	}
	buf := GetBuffer()
	if config.ReadBufferSize > 0 && config.ReadBufferSize != len(buf) {
		PutBuffer(buf)
		buf = make([]byte, config.ReadBufferSize)
	}
	c := &Connection{
		conn:         conn,
		config:       config,
		router:       router,
		newResponder: newResponder,
		arenaPool:    arenaPool,
		log:          log,
		buf:          buf,
	}
	c.state.Store(int32(StateNew))
	return c
}

// Serve runs the connection's request loop until the peer closes, a
// protocol error forces a close, or Close is called concurrently. It
// always returns without panicking on a malformed request: errors are
// reported to the client via the Responder where possible and then the
// loop exits or continues per keep-alive rules.
func (c *Connection) Serve() error {
	defer c.cleanup()

	firstRequest := true
	for {
		if c.closed.Load() {
			return nil
		}
		c.setState(StateActive)

		sr := NewSocketReader(c.conn, c.config.KeepAliveTimeout)
		seeded := copy(c.buf, c.unread)
		c.unread = nil

		n, boundary, err := sr.FillFrom(c.buf, seeded, HeaderBlockFinalizer(len(c.buf)))
		if err != nil {
			if err == ErrConnectionClosed {
				return nil
			}
			return err
		}

		start := 0
		if firstRequest {
			if info, consumed, perr := DetectAndParseProxyHeader(c.buf[:n]); perr == nil && info != nil {
				c.proxy = info
				start = consumed
				if boundary < start {
					// A v2 signature begins with CRLFCRLF, so the header
					// search stopped inside the preface; search again from
					// the first byte after it.
					m, b, ferr := sr.FillFrom(c.buf[start:], n-start, HeaderBlockFinalizer(len(c.buf)-start))
					if ferr != nil {
						if ferr == ErrConnectionClosed {
							return nil
						}
						return ferr
					}
					n, boundary = start+m, start+b
				}
			}
			firstRequest = false
		}

		if err := c.handleOneRequest(sr, c.buf[start:n], boundary-start, n-start); err != nil {
			return err
		}

		if c.closed.Load() {
			return nil
		}
		if c.config.MaxRequests > 0 && int(c.requests.Load()) >= c.config.MaxRequests {
			return nil
		}
		c.setState(StateIdle)
	}
}

// handleOneRequest tokenizes and dispatches one request whose header block
// occupies region[:boundary], where region may begin partway through
// c.buf (after a PROXY preface). total is the number of valid bytes read
// for this iteration, used to compute the pipelined tail for the next one.
func (c *Connection) handleOneRequest(sr *SocketReader, region []byte, boundary, total int) error {
	req := GetRequest()
	a := c.arenaPool.Get()
	defer func() {
		a.Free()
		c.arenaPool.Put(a)
		PutRequest(req)
	}()

	req.Proxy = c.proxy
	c.requests.Add(1)
	resp := c.newResponder(c.conn)

	lineEnd := indexCRLF(region[:boundary])
	if lineEnd < 0 {
		_ = resp.EmitStatus(400)
		c.closed.Store(true)
		return nil
	}
	if err := req.ParseRequestLine(region[:lineEnd]); err != nil {
		if err == ErrUnsupportedMethod {
			status := newStatus(KindNotAllowed, "request", err)
			c.log.Debug("method not allowed", zap.Error(status))
			_ = resp.EmitStatus(405)
		} else {
			_ = resp.EmitStatus(400)
		}
		c.closed.Store(true)
		return nil
	}
	headerBlock := region[lineEnd+2 : boundary-2]
	if err := req.ParseHeaders(headerBlock); err != nil {
		_ = resp.EmitStatus(400)
		c.closed.Store(true)
		return nil
	}

	// spec.md §4.G steps 5-6: resolve the route before any body byte is
	// read off the wire, and reject a declared body on anything but a
	// POST to a route that opted in (Route.AllowsBody) with 405 — before
	// component F (IngestBody) ever runs, not after.
	route, routeOK := c.router.LongestPrefix(req.Path)
	if !routeOK {
		_ = resp.EmitStatus(404)
		c.closed.Store(true)
		return nil
	}
	if req.HasBody() && (req.MethodID != MethodPOST || !route.AllowsBody) {
		status := newStatus(KindNotAllowed, "driver", ErrMethodNotAllowed)
		c.log.Debug("method not allowed", zap.Error(status))
		_ = resp.EmitStatus(405)
		c.closed.Store(true)
		return nil
	}

	// Bytes read past the header boundary may be a prefix of this
	// request's body (if one was bundled in the same socket read) and/or
	// the start of the next pipelined request. Only the bytes beyond the
	// declared body length are a genuine pipelined tail.
	afterHeaders := region[boundary:total]
	var bodyPreread []byte
	if req.HasBody() && !req.Chunked {
		n := len(afterHeaders)
		if int64(n) > req.ContentLength {
			n = int(req.ContentLength)
		}
		bodyPreread = afterHeaders[:n]
		afterHeaders = afterHeaders[n:]
	}
	if len(afterHeaders) > 0 {
		tail := make([]byte, len(afterHeaders))
		copy(tail, afterHeaders)
		c.unread = tail
	}

	if req.HasBody() && !req.Chunked {
		if !c.config.AllowPostTempFile && req.ContentLength >= SmallBodyThreshold && req.ContentLength <= c.config.MaxPostDataSize {
			_ = resp.EmitStatus(500)
			c.closed.Store(true)
			return nil
		}
		body, err := IngestBody(sr, req.ContentLength, c.config.MaxPostDataSize, a, c.config.TempDir, bodyPreread)
		if err != nil {
			if err == ErrBodyTooLarge {
				_ = resp.EmitStatus(413)
			} else if st, ok := err.(*Status); ok && st.Kind == KindInternal {
				_ = resp.EmitStatus(500)
			} else {
				_ = resp.EmitStatus(400)
			}
			c.closed.Store(true)
			return nil
		}
		defer body.Close()
	}

	if err := ProcessRequest(req, resp, c.router, c.config.RewriteLimit); err != nil {
		c.log.Debug("request processing failed", zap.Error(err))
	}
	if !req.ShouldKeepAlive() {
		c.closed.Store(true)
	}
	return nil
}

func indexCRLF(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == '\r' && b[i+1] == '\n' {
			return i
		}
	}
	return -1
}

func (c *Connection) setState(s ConnectionState) {
	c.state.Store(int32(s))
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// Close closes the underlying socket and marks the connection for
// teardown on its next loop check.
func (c *Connection) Close() error {
	c.closed.Store(true)
	c.setState(StateClosed)
	return c.conn.Close()
}

func (c *Connection) cleanup() {
	if c.buf != nil {
		PutBuffer(c.buf)
		c.buf = nil
	}
	c.setState(StateClosed)
}

// RequestCount returns how many requests this connection has served.
func (c *Connection) RequestCount() int { return int(c.requests.Load()) }
