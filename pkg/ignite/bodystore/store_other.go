//go:build !linux

package bodystore

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Store is a writable, mmap'd temp-file-backed byte region. The portable
// variant: no O_TMPFILE (Linux-only), no MAP_HUGETLB attempt (Linux-only),
// just create-then-unlink plus a plain private mmap.
type Store struct {
	file *os.File
	data []byte
}

// New creates a Store of the given size backed by a create-then-unlink
// temp file.
func New(size int, tmpdir string) (*Store, error) {
	if tmpdir == "" {
		tmpdir = os.TempDir()
	}
	f, err := os.CreateTemp(tmpdir, "ignite-body-*")
	if err != nil {
		return nil, errors.Wrap(err, "bodystore: create temp file")
	}
	if rerr := os.Remove(f.Name()); rerr != nil {
		f.Close()
		return nil, errors.Wrap(rerr, "bodystore: unlink temp file")
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "bodystore: truncate")
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "bodystore: mmap")
	}
	return &Store{file: f, data: data}, nil
}

// Bytes returns the mapped region.
func (s *Store) Bytes() []byte { return s.data }

// UsedHugeTLB always reports false on this platform.
func (s *Store) UsedHugeTLB() bool { return false }

// Close unmaps the region and closes the backing file.
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
