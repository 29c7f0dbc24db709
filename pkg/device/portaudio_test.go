package device

import (
	"testing"

	"github.com/drgolem/go-portaudio/portaudio"

	"github.com/birchaudio/birch/pkg/format"
)

// PortAudio talks to real hardware, so these cases only cover the
// parts that don't need an open stream: format negotiation and the
// not-open error paths.
func TestPortAudioSampleFormat(t *testing.T) {
	cases := []struct {
		in   format.SampleFormat
		want portaudio.PaSampleFormat
	}{
		{format.S16, portaudio.SampleFmtInt16},
		{format.S32, portaudio.SampleFmtInt32},
	}
	for _, c := range cases {
		d := NewPortAudio(format.Format{SampleFmt: c.in, Channels: 2, FrameRate: 48000}, 0, 512)
		got, err := d.sampleFormat()
		if err != nil {
			t.Fatalf("sampleFormat(%v): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("sampleFormat(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestPortAudioUnsupportedFormat(t *testing.T) {
	d := NewPortAudio(format.Format{SampleFmt: format.F32, Channels: 2, FrameRate: 48000}, 0, 512)
	if _, err := d.sampleFormat(); err == nil {
		t.Fatal("expected an error for F32, portaudio has no IEEE float mapping wired here")
	}
}

func TestPortAudioQueueBeforeOpen(t *testing.T) {
	d := NewPortAudio(format.Format{SampleFmt: format.S16, Channels: 2, FrameRate: 48000}, 0, 512)
	if err := d.Queue(make([]byte, 16)); err == nil {
		t.Fatal("expected an error queuing before Open")
	}
	if _, err := d.Check(); err == nil {
		t.Fatal("expected an error checking before Open")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close before Open should be a no-op: %v", err)
	}
}
