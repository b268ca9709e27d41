// Package ignsrv wires reqcore.Connection, pkg/ignite/router, and
// pkg/ignite/socket into an acceptor loop: the server driver this
// module's spec assumes sits above the per-connection state machine.
// Adapted from shockwave/pkg/shockwave/server/server.go's BaseServer —
// the same connection-tracking map, semaphore-bounded concurrency, and
// WaitGroup-drained graceful shutdown, retargeted at reqcore.Connection
// instead of the teacher's http11-coupled request loop.
package ignsrv

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/watt-toolkit/ignite/pkg/ignite/arena"
	"github.com/watt-toolkit/ignite/pkg/ignite/reqcore"
	"github.com/watt-toolkit/ignite/pkg/ignite/socket"
)

// Config configures a Server. Zero values fall back to reqcore.DefaultConfig
// and socket.DefaultConfig.
type Config struct {
	Addr string

	Reqcore reqcore.Config
	Socket  socket.Config

	// MaxConcurrentConnections bounds how many connections are served at
	// once; 0 means unbounded. Matches the teacher's connSem pattern.
	MaxConcurrentConnections int
}

// Stats mirrors the counters the teacher's BaseServer.Stats exposes,
// trimmed to what reqcore.Connection can actually report.
type Stats struct {
	TotalConnections  atomic.Int64
	ActiveConnections atomic.Int64
	TotalRequests     atomic.Int64
	ConnectionErrors  atomic.Int64
	StartTime         time.Time
}

// Server accepts connections on a net.Listener and drives each one
// through a reqcore.Connection until it closes or the server shuts down.
type Server struct {
	cfg          Config
	router       reqcore.Router
	newResponder reqcore.ResponderFactory
	arenaPool    *arena.Pool
	log          *zap.Logger

	listener net.Listener
	stats    Stats

	mu       sync.RWMutex
	shutdown atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup

	connsMu sync.Mutex
	conns   map[*reqcore.Connection]struct{}

	connSem chan struct{}
}

// New builds a Server. router resolves handlers by path, newResponder
// adapts an accepted net.Conn into a reqcore.Responder (writing status
// lines/headers/body back to the client), and log receives per-connection
// diagnostics.
func New(cfg Config, router reqcore.Router, newResponder reqcore.ResponderFactory, log *zap.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Reqcore == (reqcore.Config{}) {
		cfg.Reqcore = reqcore.DefaultConfig()
	}
	if cfg.Socket == (socket.Config{}) {
		cfg.Socket = socket.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:          cfg,
		router:       router,
		newResponder: newResponder,
		arenaPool:    arena.NewPool(),
		log:          log,
		done:         make(chan struct{}),
		conns:        make(map[*reqcore.Connection]struct{}),
	}
	s.stats.StartTime = time.Now()
	if cfg.MaxConcurrentConnections > 0 {
		s.connSem = make(chan struct{}, cfg.MaxConcurrentConnections)
	}
	return s
}

// ListenAndServe opens a TCP listener on cfg.Addr and serves it until
// Shutdown or Close is called.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections from ln until the server is shut down.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.shutdown.Load() {
				return nil
			}
			return err
		}

		if s.connSem != nil {
			select {
			case s.connSem <- struct{}{}:
			case <-s.done:
				conn.Close()
				return nil
			}
		}

		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	if s.connSem != nil {
		defer func() { <-s.connSem }()
	}

	if err := socket.Apply(conn, s.cfg.Socket); err != nil {
		s.log.Debug("socket tuning failed", zap.Error(err))
	}

	s.stats.TotalConnections.Add(1)
	s.stats.ActiveConnections.Add(1)
	defer s.stats.ActiveConnections.Add(-1)

	c := reqcore.NewConnection(conn, s.cfg.Reqcore, s.router, s.newResponder, s.arenaPool, s.log)

	s.trackConnection(c)
	defer s.untrackConnection(c)
	defer conn.Close()

	if err := c.Serve(); err != nil {
		s.stats.ConnectionErrors.Add(1)
		s.log.Debug("connection closed with error", zap.Error(err))
	}
	s.stats.TotalRequests.Add(int64(c.RequestCount()))
}

func (s *Server) trackConnection(c *reqcore.Connection) {
	s.connsMu.Lock()
	s.conns[c] = struct{}{}
	s.connsMu.Unlock()
}

func (s *Server) untrackConnection(c *reqcore.Connection) {
	s.connsMu.Lock()
	delete(s.conns, c)
	s.connsMu.Unlock()
}

// Shutdown stops accepting new connections and waits for in-flight
// connections to finish, or for ctx to expire, whichever comes first.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.shutdown.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.RLock()
	ln := s.listener
	s.mu.RUnlock()
	if ln != nil {
		ln.Close()
	}
	close(s.done)

	waitDone := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
		return nil
	case <-ctx.Done():
		s.closeAllConnections()
		return ctx.Err()
	}
}

// Close immediately closes the listener and every tracked connection.
func (s *Server) Close() error {
	if !s.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.RLock()
	ln := s.listener
	s.mu.RUnlock()
	if ln != nil {
		ln.Close()
	}
	close(s.done)
	s.closeAllConnections()
	s.wg.Wait()
	return nil
}

func (s *Server) closeAllConnections() {
	s.connsMu.Lock()
	conns := make([]*reqcore.Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Stats returns the running counters for this server.
func (s *Server) Stats() *Stats { return &s.stats }
