//go:build linux

// Package bodystore backs large request bodies with an mmap'd temp file
// instead of a heap allocation, the way a high-throughput server avoids
// putting multi-megabyte uploads on the Go heap. Grounded on the
// disk-spill pattern in WhileEndless-go-rawhttp's pkg/buffer (spill to
// os.CreateTemp past a memory threshold), adapted here to eagerly mmap the
// backing file rather than buffer-then-spill, since the caller already
// knows the body size from Content-Length before a single body byte is
// read.
package bodystore

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Store is a writable, mmap'd temp-file-backed byte region sized to fit an
// entire request body up front.
type Store struct {
	file   *os.File
	data   []byte
	hugetlb bool
}

// New creates a Store of the given size, backed by a temp file that is
// unlinked immediately (so it disappears from the filesystem namespace the
// moment the last fd referencing it closes). O_TMPFILE is tried first
// (avoids a visible directory entry at all on Linux); mkstemp+unlink is the
// portable fallback.
func New(size int, tmpdir string) (*Store, error) {
	f, err := openTemp(tmpdir)
	if err != nil {
		return nil, errors.Wrap(err, "bodystore: open temp file")
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "bodystore: truncate")
	}

	data, hugetlb, err := mmapFile(f, size)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "bodystore: mmap")
	}
	return &Store{file: f, data: data, hugetlb: hugetlb}, nil
}

// Bytes returns the mapped region. The mapping is private: writes to it
// stay in this process's copy and are not written back to the backing
// file, and they are discarded on Close.
func (s *Store) Bytes() []byte { return s.data }

// UsedHugeTLB reports whether the mapping used MAP_HUGETLB. Exposed only
// for diagnostics/logging.
func (s *Store) UsedHugeTLB() bool { return s.hugetlb }

// Close unmaps the region and closes (and thereby, since it was unlinked
// or opened via O_TMPFILE, deletes) the backing file.
func (s *Store) Close() error {
	var errs []error
	if s.data != nil {
		if err := unix.Munmap(s.data); err != nil {
			errs = append(errs, err)
		}
		s.data = nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			errs = append(errs, err)
		}
		s.file = nil
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func openTemp(tmpdir string) (*os.File, error) {
	if tmpdir == "" {
		tmpdir = os.TempDir()
	}
	f, err := os.OpenFile(tmpdir, os.O_RDWR|unix.O_TMPFILE, 0600)
	if err == nil {
		return f, nil
	}
	// O_TMPFILE unsupported (non-Linux, or filesystem without support):
	// fall back to create-then-unlink, same end state (fd with no
	// directory entry) achieved portably.
	f, err = os.CreateTemp(tmpdir, "ignite-body-*")
	if err != nil {
		return nil, err
	}
	name := f.Name()
	if rerr := os.Remove(name); rerr != nil {
		f.Close()
		return nil, rerr
	}
	return f, nil
}

func mmapFile(f *os.File, size int) (data []byte, hugetlb bool, err error) {
	flags := unix.MAP_PRIVATE
	// MAP_HUGETLB requires the mapping to be huge-page aligned and backed
	// by hugetlbfs, which an ordinary tmpfs temp file is not; attempting it
	// against a ftruncate'd regular file will simply fail, which is the
	// intended tolerance — see Open Question in DESIGN.md.
	data, err = unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, flags|unix.MAP_HUGETLB)
	if err == nil {
		return data, true, nil
	}
	data, err = unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return nil, false, err
	}
	return data, false, nil
}
