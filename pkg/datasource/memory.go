package datasource

import (
	"io"
	"sync"

	"github.com/birchaudio/birch/pkg/gaerr"
	"github.com/birchaudio/birch/pkg/memory"
	"github.com/birchaudio/birch/pkg/refcount"
)

// MemorySource is a DataSource backed by an in-memory Memory buffer,
// guarded by a mutex since Memory itself has no internal locking.
type MemorySource struct {
	rc   *refcount.Count
	mu   sync.Mutex
	mem  *memory.Memory
	pos  int64
	size int64
}

// NewMemorySource wraps mem (acquiring its own reference) as a
// DataSource.
func NewMemorySource(mem *memory.Memory) *MemorySource {
	mem.Acquire()
	return &MemorySource{rc: refcount.New(), mem: mem, size: int64(mem.Size())}
}

func (s *MemorySource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := s.size - s.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	n := int64(len(p))
	if n > remaining {
		n = remaining
	}
	copy(p[:n], s.mem.Bytes()[s.pos:s.pos+n])
	s.pos += n

	var err error
	if s.pos >= s.size {
		err = io.EOF
	}
	return int(n), err
}

func (s *MemorySource) Seek(offset int64, origin SeekOrigin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var base int64
	switch origin {
	case SeekSet:
		base = 0
	case SeekCur:
		base = s.pos
	case SeekEnd:
		base = s.size
	}
	pos := base + offset
	if pos < 0 || pos > s.size {
		return gaerr.New(gaerr.MisParam, "seek offset %d out of range [0, %d]", pos, s.size)
	}
	s.pos = pos
	return nil
}

func (s *MemorySource) Tell() (current int64, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, s.size
}

func (s *MemorySource) Eof() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos >= s.size
}

func (s *MemorySource) Seekable() bool   { return true }
func (s *MemorySource) Threadsafe() bool { return true }

func (s *MemorySource) Acquire() { s.rc.Acquire() }
func (s *MemorySource) Release() {
	if s.rc.Release() {
		s.mem.Release()
	}
}
