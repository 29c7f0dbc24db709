// Package vorbissrc adapts github.com/jfreymuth/oggvorbis (itself
// built on github.com/jfreymuth/vorbis) into a SampleSource. Unlike
// the other decoder adapters it decodes to float32 frames natively,
// so output is always format.F32.
package vorbissrc

import (
	"io"
	"math"
	"os"
	"sync"

	"github.com/jfreymuth/oggvorbis"

	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/gaerr"
	"github.com/birchaudio/birch/pkg/refcount"
)

// Source decodes an Ogg Vorbis file via jfreymuth/oggvorbis. It is
// seekable: the underlying reader exposes SetPosition in frames.
type Source struct {
	rc *refcount.Count

	mu     sync.Mutex
	file   *os.File
	reader *oggvorbis.Reader
	fmtOut format.Format
	total  int64
	pos    int64
	ended  bool

	scratch []float32
}

// Open opens path as an Ogg Vorbis source.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, gaerr.Wrap(gaerr.SysIO, err, "vorbissrc: open %s", path)
	}

	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, gaerr.Wrap(gaerr.Format, err, "vorbissrc: decode %s", path)
	}

	return &Source{
		rc:     refcount.New(),
		file:   f,
		reader: reader,
		fmtOut: format.Format{
			SampleFmt: format.F32,
			Channels:  reader.Channels(),
			FrameRate: reader.SampleRate(),
		},
		total: reader.Length(),
	}, nil
}

func (s *Source) Format() format.Format { return s.fmtOut }

func (s *Source) Read(dst []byte) (int, error) {
	channels := s.fmtOut.Channels
	frameSize := s.fmtOut.FrameSize()
	wantFrames := len(dst) / frameSize

	s.mu.Lock()
	defer s.mu.Unlock()
	if wantFrames == 0 || s.ended {
		return 0, nil
	}

	wantSamples := wantFrames * channels
	if cap(s.scratch) < wantSamples {
		s.scratch = make([]float32, wantSamples)
	}
	buf := s.scratch[:wantSamples]

	n, err := s.reader.Read(buf)
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, gaerr.Wrap(gaerr.SysIO, err, "vorbissrc: decode")
		}
		s.ended = true
		return 0, nil
	}

	frames := n / channels
	for i := 0; i < frames*channels; i++ {
		putF32LE(dst[i*4:i*4+4], buf[i])
	}

	s.pos += int64(frames)
	if err != nil {
		s.ended = true
	}
	return frames, nil
}

func putF32LE(dst []byte, v float32) {
	bits := math.Float32bits(v)
	dst[0] = byte(bits)
	dst[1] = byte(bits >> 8)
	dst[2] = byte(bits >> 16)
	dst[3] = byte(bits >> 24)
}

func (s *Source) End() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *Source) Ready() bool    { return true }
func (s *Source) Seekable() bool { return true }

func (s *Source) Seek(frame int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if frame < 0 {
		frame = 0
	}
	if s.total >= 0 && frame > s.total {
		frame = s.total
	}
	s.reader.SetPosition(frame)
	s.pos = frame
	s.ended = false
	return nil
}

func (s *Source) Tell() (current int64, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, s.total
}

func (s *Source) Acquire() { s.rc.Acquire() }
func (s *Source) Release() {
	if s.rc.Release() {
		s.mu.Lock()
		s.file.Close()
		s.mu.Unlock()
	}
}
