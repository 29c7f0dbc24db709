// Package format describes PCM sample layouts and converts between the
// sample encodings the pipeline understands.
package format

import "fmt"

// SampleFormat identifies the on-the-wire encoding of a single sample.
type SampleFormat int

const (
	// U8 is unsigned 8-bit PCM, silence at 0x80.
	U8 SampleFormat = iota
	// S16 is signed 16-bit little-endian PCM.
	S16
	// S32 is signed 32-bit little-endian PCM.
	S32
	// F32 is 32-bit IEEE-754 float PCM, nominal range [-1, 1].
	F32
)

func (f SampleFormat) String() string {
	switch f {
	case U8:
		return "u8"
	case S16:
		return "s16"
	case S32:
		return "s32"
	case F32:
		return "f32"
	default:
		return fmt.Sprintf("SampleFormat(%d)", int(f))
	}
}

// BytesPerSample returns the number of bytes a single channel sample
// occupies in this format.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case U8:
		return 1
	case S16:
		return 2
	case S32, F32:
		return 4
	default:
		return 0
	}
}

// Format fully describes a PCM audio stream: its sample encoding,
// channel count, and frame rate. A frame is one sample per channel.
type Format struct {
	SampleFmt SampleFormat
	Channels  int
	FrameRate int
}

// SampleSize returns the size in bytes of a single channel's sample.
func (f Format) SampleSize() int {
	return f.SampleFmt.BytesPerSample()
}

// FrameSize returns the size in bytes of one frame (one sample per
// channel) in this format.
func (f Format) FrameSize() int {
	return f.SampleFmt.BytesPerSample() * f.Channels
}

// ToSeconds converts a frame count to a duration in seconds at this
// format's frame rate.
func (f Format) ToSeconds(frames int64) float64 {
	if f.FrameRate == 0 {
		return 0
	}
	return float64(frames) / float64(f.FrameRate)
}

// ToFrames converts a duration in seconds to a frame count at this
// format's frame rate, rounding down.
func (f Format) ToFrames(seconds float64) int64 {
	return int64(seconds * float64(f.FrameRate))
}

// Valid reports whether the format has a recognized sample encoding, a
// supported channel count (mono or stereo), and a positive frame rate.
func (f Format) Valid() bool {
	switch f.SampleFmt {
	case U8, S16, S32, F32:
	default:
		return false
	}
	return (f.Channels == 1 || f.Channels == 2) && f.FrameRate > 0
}

func (f Format) String() string {
	return fmt.Sprintf("%s/%dch/%dHz", f.SampleFmt, f.Channels, f.FrameRate)
}
