// Package opussrc adapts github.com/drgolem/go-opus into a
// SampleSource, following the same Open/GetFormat/DecodeSamples shape
// as that author's go-flac and go-mpg123 bindings (pkg/decoders/flac,
// pkg/decoders/mp3).
package opussrc

import (
	"sync"

	"github.com/drgolem/go-opus/opus"

	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/gaerr"
	"github.com/birchaudio/birch/pkg/refcount"
)

// Source decodes an Ogg Opus file via go-opus. It streams forward
// only.
type Source struct {
	rc *refcount.Count

	mu      sync.Mutex
	decoder *opus.Decoder
	fmtOut  format.Format
	pos     int64
	ended   bool
}

// Open opens path as an Opus source.
func Open(path string) (*Source, error) {
	decoder, err := opus.NewDecoder()
	if err != nil {
		return nil, gaerr.Wrap(gaerr.SysLib, err, "opussrc: create decoder")
	}
	if err := decoder.Open(path); err != nil {
		decoder.Delete()
		return nil, gaerr.Wrap(gaerr.SysIO, err, "opussrc: open %s", path)
	}

	rate, channels, bps := decoder.GetFormat()
	sampleFmt, ok := sampleFormatForBits(bps)
	if !ok {
		decoder.Close()
		decoder.Delete()
		return nil, gaerr.New(gaerr.Format, "opussrc: %s has unsupported bit depth %d", path, bps)
	}

	return &Source{
		rc:      refcount.New(),
		decoder: decoder,
		fmtOut: format.Format{
			SampleFmt: sampleFmt,
			Channels:  channels,
			FrameRate: rate,
		},
	}, nil
}

func sampleFormatForBits(bps int) (format.SampleFormat, bool) {
	switch bps {
	case 16:
		return format.S16, true
	case 32:
		return format.S32, true
	default:
		return 0, false
	}
}

func (s *Source) Format() format.Format { return s.fmtOut }

func (s *Source) Read(dst []byte) (int, error) {
	frameSize := s.fmtOut.FrameSize()
	wantFrames := len(dst) / frameSize

	s.mu.Lock()
	defer s.mu.Unlock()
	if wantFrames == 0 || s.ended {
		return 0, nil
	}

	n, err := s.decoder.DecodeSamples(wantFrames, dst[:wantFrames*frameSize])
	if n <= 0 {
		s.ended = true
		return 0, nil
	}
	s.pos += int64(n)
	if err != nil {
		s.ended = true
	}
	return n, nil
}

func (s *Source) End() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *Source) Ready() bool    { return true }
func (s *Source) Seekable() bool { return false }

func (s *Source) Seek(frame int64) error {
	return gaerr.New(gaerr.MisUnsup, "opussrc: seek not supported")
}

func (s *Source) Tell() (current int64, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, -1
}

func (s *Source) Acquire() { s.rc.Acquire() }
func (s *Source) Release() {
	if s.rc.Release() {
		s.mu.Lock()
		s.decoder.Close()
		s.decoder.Delete()
		s.mu.Unlock()
	}
}
