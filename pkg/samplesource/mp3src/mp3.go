// Package mp3src adapts github.com/drgolem/go-mpg123 into a
// SampleSource, grounded on pkg/decoders/mp3's Open/GetFormat/
// DecodeSamples wrapper.
package mp3src

import (
	"sync"

	"github.com/drgolem/go-mpg123/mpg123"

	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/gaerr"
	"github.com/birchaudio/birch/pkg/refcount"
)

// Source decodes an MP3 file via mpg123. It streams forward only;
// mpg123's Go binding exposed here has no seek entry point.
type Source struct {
	rc *refcount.Count

	mu      sync.Mutex
	decoder *mpg123.Decoder
	fmtOut  format.Format
	pos     int64
	ended   bool
}

// Open opens path as an MP3 source, using mpg123's default decoder
// selection (empty string picks its best available backend).
func Open(path string) (*Source, error) {
	decoder, err := mpg123.NewDecoder("")
	if err != nil {
		return nil, gaerr.Wrap(gaerr.SysLib, err, "mp3src: create decoder")
	}
	if err := decoder.Open(path); err != nil {
		decoder.Delete()
		return nil, gaerr.Wrap(gaerr.SysIO, err, "mp3src: open %s", path)
	}

	rate, channels, _ := decoder.GetFormat()

	return &Source{
		rc:      refcount.New(),
		decoder: decoder,
		fmtOut: format.Format{
			// mpg123's DecodeSamples is documented (pkg/decoders/mp3) to
			// transparently handle mono/stereo and 16/24/32-bit output;
			// this adapter only asks it for 16-bit, matching every other
			// decoder's default in this pipeline.
			SampleFmt: format.S16,
			Channels:  channels,
			FrameRate: rate,
		},
	}, nil
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
	return gaerr.New(gaerr.MisUnsup, "mp3src: seek not supported")
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
