// Package tonesrc implements a synthesized sine-wave SampleSource,
// used by the "tone" command and by tests needing a known, exact
// signal without decoding a file. There is no codec or container
// here, so no third-party library is involved: this is plain signal
// generation against the standard library's math package.
package tonesrc

import (
	"math"
	"sync"

	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/gaerr"
	"github.com/birchaudio/birch/pkg/refcount"
)

// Source generates a mono sine wave at freqHz, scaled by amplitude
// (0..1), for totalFrames frames. A negative totalFrames means the
// tone never ends.
type Source struct {
	rc *refcount.Count

	fmtOut      format.Format
	freqHz      float64
	amplitude   float64
	totalFrames int64

	mu  sync.Mutex
	pos int64
}

// New creates a sine-wave source at sampleRate Hz, freqHz tone
// frequency, amplitude in [0,1], running for totalFrames frames (or
// forever if totalFrames < 0).
func New(sampleRate int, freqHz, amplitude float64, totalFrames int64) *Source {
	return &Source{
		rc:     refcount.New(),
		freqHz: freqHz,
		amplitude: clamp01(amplitude),
		fmtOut: format.Format{
			SampleFmt: format.S16,
			Channels:  1,
			FrameRate: sampleRate,
		},
		totalFrames: totalFrames,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (s *Source) Format() format.Format { return s.fmtOut }

func (s *Source) Read(dst []byte) (int, error) {
	frameSize := s.fmtOut.FrameSize()
	wantFrames := int64(len(dst) / frameSize)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := wantFrames
	if s.totalFrames >= 0 {
		avail := s.totalFrames - s.pos
		if n > avail {
			n = avail
		}
	}
	if n <= 0 {
		return 0, nil
	}

	rate := float64(s.fmtOut.FrameRate)
	for i := int64(0); i < n; i++ {
		t := float64(s.pos+i) / rate
		v := s.amplitude * math.Sin(2*math.Pi*s.freqHz*t)
		sample := int16(v * 32767)
		off := i * 2
		dst[off] = byte(sample)
		dst[off+1] = byte(sample >> 8)
	}
	s.pos += n
	return int(n), nil
}

func (s *Source) End() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalFrames >= 0 && s.pos >= s.totalFrames
}

func (s *Source) Ready() bool    { return true }
func (s *Source) Seekable() bool { return true }

func (s *Source) Seek(frame int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if frame < 0 {
		return gaerr.New(gaerr.MisParam, "tonesrc: negative seek frame %d", frame)
	}
	s.pos = frame
	return nil
}

func (s *Source) Tell() (current int64, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, s.totalFrames
}

func (s *Source) Acquire() { s.rc.Acquire() }
func (s *Source) Release() {
	s.rc.Release()
}
