package format

import "testing"

func TestFrameSize(t *testing.T) {
	cases := []struct {
		f    Format
		want int
	}{
		{Format{U8, 1, 8000}, 1},
		{Format{S16, 2, 44100}, 4},
		{Format{S32, 1, 48000}, 4},
		{Format{F32, 2, 48000}, 8},
	}
	for _, c := range cases {
		if got := c.f.FrameSize(); got != c.want {
			t.Errorf("FrameSize(%v) = %d, want %d", c.f, got, c.want)
		}
	}
}

func TestToFramesToSecondsRoundTrip(t *testing.T) {
	f := Format{S16, 2, 48000}
	frames := f.ToFrames(1.5)
	if frames != 72000 {
		t.Fatalf("ToFrames(1.5) = %d, want 72000", frames)
	}
	if got := f.ToSeconds(72000); got != 1.5 {
		t.Fatalf("ToSeconds(72000) = %v, want 1.5", got)
	}
}

func TestValid(t *testing.T) {
	if !(Format{S16, 2, 44100}).Valid() {
		t.Fatal("expected valid format to be valid")
	}
	if (Format{S16, 3, 44100}).Valid() {
		t.Fatal("3 channels should be invalid")
	}
	if (Format{SampleFormat(99), 1, 44100}).Valid() {
		t.Fatal("unknown sample format should be invalid")
	}
	if (Format{S16, 1, 0}).Valid() {
		t.Fatal("zero frame rate should be invalid")
	}
}

func TestAccumRoundTripS16(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 12345, -12345}
	for _, s := range samples {
		src := []byte{byte(uint16(s)), byte(uint16(s) >> 8)}
		acc := ToAccum(S16, src)
		dst := make([]byte, 2)
		FromAccum(S16, acc, dst)
		got := int16(uint16(dst[0]) | uint16(dst[1])<<8)
		if got != s {
			t.Errorf("S16 round trip: got %d, want %d", got, s)
		}
	}
}

func TestAccumRoundTripU8(t *testing.T) {
	for _, s := range []byte{0, 1, 127, 128, 129, 255} {
		acc := ToAccum(U8, []byte{s})
		dst := make([]byte, 1)
		FromAccum(U8, acc, dst)
		if dst[0] != s {
			t.Errorf("U8 round trip: got %d, want %d", dst[0], s)
		}
	}
}

func TestAccumSilenceIsZero(t *testing.T) {
	if got := ToAccum(U8, []byte{128}); got != 0 {
		t.Errorf("U8 silence (0x80) = %d, want 0", got)
	}
	if got := ToAccum(S16, []byte{0, 0}); got != 0 {
		t.Errorf("S16 silence = %d, want 0", got)
	}
}
