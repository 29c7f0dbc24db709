// Package memory provides owned, reference-counted byte buffers and
// the Sound type that pairs such a buffer with an audio Format.
package memory

import (
	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/gaerr"
	"github.com/birchaudio/birch/pkg/refcount"
)

// Memory is a reference-counted, immutable-once-created byte buffer.
// Multiple Sounds or data sources can share one Memory without
// copying; the backing array is freed (dropped for GC) only when the
// last reference is released.
type Memory struct {
	rc   *refcount.Count
	data []byte
}

// New allocates a Memory of size bytes.
func New(size int) *Memory {
	return &Memory{rc: refcount.New(), data: make([]byte, size)}
}

// NewFromBytes wraps an existing byte slice as a Memory without
// copying. The caller must not mutate buf after this call.
func NewFromBytes(buf []byte) *Memory {
	return &Memory{rc: refcount.New(), data: buf}
}

// Bytes returns the underlying buffer. Callers must not retain it
// past Release.
func (m *Memory) Bytes() []byte { return m.data }

// Size returns the buffer length in bytes.
func (m *Memory) Size() int { return len(m.data) }

// Acquire adds a reference to m.
func (m *Memory) Acquire() { m.rc.Acquire() }

// Release drops a reference to m. There is nothing further to do on
// the final release beyond letting the buffer become garbage; Release
// exists so callers can treat Memory uniformly with other refcounted
// pipeline objects.
func (m *Memory) Release() {
	if m.rc.Release() {
		m.data = nil
	}
}

// Sound is an in-memory, fully-decoded clip: a Memory buffer paired
// with the Format describing how to interpret it, plus the frame
// count implied by that pairing.
type Sound struct {
	rc     *refcount.Count
	mem    *Memory
	format format.Format
	frames int64
}

// NewSound creates a Sound over mem interpreted as fmt. It acquires
// its own reference to mem. Returns a MisParam error if mem's size is
// not an exact multiple of the format's frame size.
func NewSound(mem *Memory, fmt format.Format) (*Sound, error) {
	frameSize := fmt.FrameSize()
	if frameSize <= 0 {
		return nil, gaerr.New(gaerr.MisParam, "invalid sample format")
	}
	if mem.Size()%frameSize != 0 {
		return nil, gaerr.New(gaerr.MisParam, "memory size %d is not a multiple of frame size %d", mem.Size(), frameSize)
	}

	mem.Acquire()
	return &Sound{
		rc:     refcount.New(),
		mem:    mem,
		format: fmt,
		frames: int64(mem.Size() / frameSize),
	}, nil
}

// Format returns the sound's audio format.
func (s *Sound) Format() format.Format { return s.format }

// Frames returns the total frame count in the sound.
func (s *Sound) Frames() int64 { return s.frames }

// Data returns the raw backing bytes for the sound's full duration.
func (s *Sound) Data() []byte { return s.mem.Bytes() }

// Acquire adds a reference to s.
func (s *Sound) Acquire() { s.rc.Acquire() }

// Release drops a reference to s, releasing the underlying Memory
// reference once the last Sound reference is gone.
func (s *Sound) Release() {
	if s.rc.Release() {
		s.mem.Release()
	}
}
