package samplesource

import (
	"sync"

	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/memory"
	"github.com/birchaudio/birch/pkg/refcount"
)

// SoundSource is a SampleSource over a fully in-memory Sound. Only the
// cursor advance is mutex-guarded; the copy out of the sound's
// backing buffer happens outside the lock using the pre-advance
// position, since the buffer itself is immutable for the sound's
// lifetime.
type SoundSource struct {
	rc    *refcount.Count
	sound *memory.Sound

	mu  sync.Mutex
	pos int64
}

// NewSoundSource creates a SampleSource over sound, acquiring its own
// reference.
func NewSoundSource(sound *memory.Sound) *SoundSource {
	sound.Acquire()
	return &SoundSource{rc: refcount.New(), sound: sound}
}

func (s *SoundSource) Format() format.Format { return s.sound.Format() }

func (s *SoundSource) Read(dst []byte) (int, error) {
	frameSize := s.sound.Format().FrameSize()
	wantFrames := int64(len(dst) / frameSize)

	s.mu.Lock()
	total := s.sound.Frames()
	avail := total - s.pos
	n := wantFrames
	if n > avail {
		n = avail
	}
	start := s.pos
	s.pos += n
	s.mu.Unlock()

	if n <= 0 {
		return 0, nil
	}
	data := s.sound.Data()
	copy(dst[:n*int64(frameSize)], data[start*int64(frameSize):(start+n)*int64(frameSize)])
	return int(n), nil
}

func (s *SoundSource) End() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos >= s.sound.Frames()
}

func (s *SoundSource) Ready() bool    { return true }
func (s *SoundSource) Seekable() bool { return true }

func (s *SoundSource) Seek(frame int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if frame < 0 || frame > s.sound.Frames() {
		frame = max64(0, min64(frame, s.sound.Frames()))
	}
	s.pos = frame
	return nil
}

func (s *SoundSource) Tell() (current int64, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, s.sound.Frames()
}

func (s *SoundSource) Acquire() { s.rc.Acquire() }
func (s *SoundSource) Release() {
	if s.rc.Release() {
		s.sound.Release()
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
