package device

import (
	"fmt"
	"os"

	"github.com/youpy/go-wav"

	"github.com/birchaudio/birch/pkg/format"
)

// WAVSink renders queued audio to a single PCM WAV file via
// github.com/youpy/go-wav, mirroring cmd/transform.go's writeWAVFile
// helper. The WAV header needs the total sample count up front, so
// queued buffers accumulate in memory and the file itself is written
// out on Close.
type WAVSink struct {
	path   string
	fmtOut format.Format

	buf []byte
}

// NewWAVSink creates a back-end that writes everything queued between
// Open and Close to a single WAV file at path, in fmtOut.
func NewWAVSink(path string, fmtOut format.Format) *WAVSink {
	return &WAVSink{path: path, fmtOut: fmtOut}
}

func (s *WAVSink) Open() error {
	s.buf = s.buf[:0]
	return nil
}

// Check always reports one free buffer: a file sink has no back-
// pressure to model.
func (s *WAVSink) Check() (int, error) {
	return 1, nil
}

func (s *WAVSink) Queue(buf []byte) error {
	s.buf = append(s.buf, buf...)
	return nil
}

func (s *WAVSink) Close() error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("device: create %s: %w", s.path, err)
	}
	defer f.Close()

	frameSize := s.fmtOut.FrameSize()
	numSamples := uint32(len(s.buf) / frameSize)
	bitsPerSample := uint16(s.fmtOut.SampleFmt.BytesPerSample() * 8)

	w := wav.NewWriter(f, numSamples, uint16(s.fmtOut.Channels), uint32(s.fmtOut.FrameRate), bitsPerSample)
	if _, err := w.Write(s.buf[:numSamples*uint32(frameSize)]); err != nil {
		return fmt.Errorf("device: write %s: %w", s.path, err)
	}
	return nil
}
