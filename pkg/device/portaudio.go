package device

import (
	"fmt"
	"sync"

	"github.com/drgolem/go-portaudio/portaudio"

	"github.com/birchaudio/birch/pkg/format"
)

var (
	paInitMu    sync.Mutex
	paInitCount int
)

func paAcquire() error {
	paInitMu.Lock()
	defer paInitMu.Unlock()
	if paInitCount == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("device: portaudio initialize: %w", err)
		}
	}
	paInitCount++
	return nil
}

func paRelease() {
	paInitMu.Lock()
	defer paInitMu.Unlock()
	paInitCount--
	if paInitCount <= 0 {
		paInitCount = 0
		portaudio.Terminate()
	}
}

// PortAudio plays queued buffers through the system's default (or a
// chosen) output device via github.com/drgolem/go-portaudio, using the
// same blocking-stream open/start/write/stop/close lifecycle as
// pkg/audioplayer.Player's initStream.
type PortAudio struct {
	fmtOut          format.Format
	deviceIndex     int
	framesPerBuffer int

	stream *portaudio.PaStream
}

// NewPortAudio creates a PortAudio back-end for fmtOut, writing
// framesPerBuffer frames at a time to device index deviceIndex.
func NewPortAudio(fmtOut format.Format, deviceIndex, framesPerBuffer int) *PortAudio {
	return &PortAudio{
		fmtOut:          fmtOut,
		deviceIndex:     deviceIndex,
		framesPerBuffer: framesPerBuffer,
	}
}

func (d *PortAudio) sampleFormat() (portaudio.PaSampleFormat, error) {
	switch d.fmtOut.SampleFmt {
	case format.S16:
		return portaudio.SampleFmtInt16, nil
	case format.S32:
		return portaudio.SampleFmtInt32, nil
	default:
		return 0, fmt.Errorf("device: portaudio back-end does not support sample format %v", d.fmtOut.SampleFmt)
	}
}

// Open initializes PortAudio (reference counted across back-ends in
// this process) and starts a blocking output stream.
func (d *PortAudio) Open() error {
	if err := paAcquire(); err != nil {
		return err
	}

	sampleFormat, err := d.sampleFormat()
	if err != nil {
		paRelease()
		return err
	}

	outParams := portaudio.PaStreamParameters{
		DeviceIndex:  d.deviceIndex,
		ChannelCount: d.fmtOut.Channels,
		SampleFormat: sampleFormat,
	}

	stream, err := portaudio.NewStream(outParams, float64(d.fmtOut.FrameRate))
	if err != nil {
		paRelease()
		return fmt.Errorf("device: create stream: %w", err)
	}
	if err := stream.Open(d.framesPerBuffer); err != nil {
		paRelease()
		return fmt.Errorf("device: open stream: %w", err)
	}
	if err := stream.StartStream(); err != nil {
		stream.Close()
		paRelease()
		return fmt.Errorf("device: start stream: %w", err)
	}

	d.stream = stream
	return nil
}

// Check always reports one free buffer once the stream is open: the
// blocking PortAudio binding has no queue-depth query, so Queue itself
// blocks until the device is ready rather than Check predicting it.
func (d *PortAudio) Check() (int, error) {
	if d.stream == nil {
		return 0, fmt.Errorf("device: portaudio stream not open")
	}
	return 1, nil
}

// Queue blocks until buf has been written to the output stream.
func (d *PortAudio) Queue(buf []byte) error {
	if d.stream == nil {
		return fmt.Errorf("device: portaudio stream not open")
	}
	frameSize := d.fmtOut.FrameSize()
	frames := len(buf) / frameSize
	if frames == 0 {
		return nil
	}
	if err := d.stream.Write(frames, buf[:frames*frameSize]); err != nil {
		return fmt.Errorf("device: write stream: %w", err)
	}
	return nil
}

// Close stops and closes the stream and releases PortAudio's process-
// wide initialization once every open back-end has closed.
func (d *PortAudio) Close() error {
	if d.stream == nil {
		return nil
	}
	stream := d.stream
	d.stream = nil

	var firstErr error
	if err := stream.StopStream(); err != nil {
		firstErr = fmt.Errorf("device: stop stream: %w", err)
	}
	if err := stream.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("device: close stream: %w", err)
	}
	paRelease()
	return firstErr
}
