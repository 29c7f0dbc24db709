// Package wavsrc adapts github.com/youpy/go-wav into a SampleSource,
// grounded on pkg/decoders/wav's Open/GetFormat/DecodeSamples wrapper.
package wavsrc

import (
	"io"
	"os"
	"sync"

	"github.com/youpy/go-wav"

	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/gaerr"
	"github.com/birchaudio/birch/pkg/refcount"
)

// Source decodes a PCM WAV file frame by frame. It is not seekable:
// go-wav's Reader only streams forward.
type Source struct {
	rc *refcount.Count

	mu     sync.Mutex
	file   *os.File
	reader *wav.Reader
	fmtOut format.Format
	pos    int64
	ended  bool
}

// Open opens path as a WAV source. The file must carry PCM audio; any
// other AudioFormat tag is rejected with gaerr.Format.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, gaerr.Wrap(gaerr.SysIO, err, "wavsrc: open %s", path)
	}

	reader := wav.NewReader(f)
	wavFmt, err := reader.Format()
	if err != nil {
		f.Close()
		return nil, gaerr.Wrap(gaerr.Format, err, "wavsrc: read header of %s", path)
	}
	if wavFmt.AudioFormat != wav.AudioFormatPCM {
		f.Close()
		return nil, gaerr.New(gaerr.Format, "wavsrc: %s is not PCM (format tag %d)", path, wavFmt.AudioFormat)
	}

	var sampleFmt format.SampleFormat
	switch wavFmt.BitsPerSample {
	case 8:
		sampleFmt = format.U8
	case 16:
		sampleFmt = format.S16
	case 32:
		sampleFmt = format.S32
	default:
		f.Close()
		return nil, gaerr.New(gaerr.Format, "wavsrc: %s has unsupported bit depth %d", path, wavFmt.BitsPerSample)
	}

	return &Source{
		rc:     refcount.New(),
		file:   f,
		reader: reader,
		fmtOut: format.Format{
			SampleFmt: sampleFmt,
			Channels:  int(wavFmt.NumChannels),
			FrameRate: int(wavFmt.SampleRate),
		},
	}, nil
}

func (s *Source) Format() format.Format { return s.fmtOut }

func (s *Source) Read(dst []byte) (int, error) {
	frameSize := s.fmtOut.FrameSize()
	bytesPerSample := s.fmtOut.SampleFmt.BytesPerSample()
	wantFrames := len(dst) / frameSize

	s.mu.Lock()
	defer s.mu.Unlock()
	if wantFrames == 0 || s.ended {
		return 0, nil
	}

	samples, err := s.reader.ReadSamples(wantFrames)
	if len(samples) == 0 {
		if err != nil && err != io.EOF {
			return 0, gaerr.Wrap(gaerr.SysIO, err, "wavsrc: decode")
		}
		s.ended = true
		return 0, nil
	}

	for i, sample := range samples {
		for ch := 0; ch < s.fmtOut.Channels && ch < len(sample.Values); ch++ {
			off := (i*s.fmtOut.Channels + ch) * bytesPerSample
			writeLittleEndian(dst[off:off+bytesPerSample], sample.Values[ch], bytesPerSample)
		}
	}

	s.pos += int64(len(samples))
	if err != nil {
		s.ended = true
	}
	return len(samples), nil
}

func writeLittleEndian(dst []byte, value int, bytesPerSample int) {
	for i := 0; i < bytesPerSample; i++ {
		dst[i] = byte(value >> (8 * i))
	}
}

func (s *Source) End() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *Source) Ready() bool    { return true }
func (s *Source) Seekable() bool { return false }

func (s *Source) Seek(frame int64) error {
	return gaerr.New(gaerr.MisUnsup, "wavsrc: seek not supported")
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
		s.file.Close()
		s.mu.Unlock()
	}
}
