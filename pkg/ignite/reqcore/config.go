package reqcore

import "time"

// Config holds the tunables this module's components consult. It follows
// the teacher's own Config+DefaultConfig() idiom (http11.ConnectionConfig,
// server.Config) rather than reaching for a flags/viper-style config
// library the example pack never uses either.
type Config struct {
	// MaxPostDataSize caps a request body's Content-Length; bodies larger
	// are rejected with ErrBodyTooLarge before any bytes are read.
	MaxPostDataSize int64

	// KeepAliveTimeout bounds how long a connection may sit idle between
	// pipelined requests.
	KeepAliveTimeout time.Duration

	// MaxRequests caps how many requests one connection serves before it
	// is forced to close (0 = unlimited), matching the teacher's
	// ConnectionConfig.MaxRequests.
	MaxRequests int

	// ReadBufferSize is the size of the per-connection request buffer;
	// zero means DefaultBufferSize.
	ReadBufferSize int

	// RewriteLimit caps how many internal URL rewrites ProcessRequest will
	// follow before giving up with ErrTooManyRewrites.
	RewriteLimit int

	// AllowPostTempFile enables the bodystore (mmap/temp-file) backing for
	// bodies at or above SmallBodyThreshold; if false, such bodies (within
	// MaxPostDataSize) are answered with 500 and the connection is closed
	// before any body byte is read.
	AllowPostTempFile bool

	// TempDir overrides the directory bodystore creates its backing files
	// in; empty means os.TempDir(), which on Unix reads only $TMPDIR and
	// falls back to /tmp (TMP and TEMP are not consulted, and the
	// directory is not checked for being an absolute path).
	TempDir string
}

// DefaultConfig returns the configuration this module uses absent explicit
// overrides.
func DefaultConfig() Config {
	return Config{
		MaxPostDataSize:   defaultPostDataCap,
		KeepAliveTimeout:  DefaultKeepAliveTimeo * time.Second,
		MaxRequests:       0,
		ReadBufferSize:    DefaultBufferSize,
		RewriteLimit:      DefaultRewriteLimit,
		AllowPostTempFile: true,
	}
}
