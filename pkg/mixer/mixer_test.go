package mixer

import (
	"testing"

	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/memory"
	"github.com/birchaudio/birch/pkg/samplesource"
)

func constantMonoS16Source(t *testing.T, value int16, frames int, rate int) *samplesource.SoundSource {
	t.Helper()
	fmtOut := format.Format{SampleFmt: format.S16, Channels: 1, FrameRate: rate}
	mem := memory.New(frames * fmtOut.FrameSize())
	buf := mem.Bytes()
	for i := 0; i < frames; i++ {
		buf[i*2] = byte(value)
		buf[i*2+1] = byte(value >> 8)
	}
	sound, err := memory.NewSound(mem, fmtOut)
	if err != nil {
		t.Fatalf("NewSound: %v", err)
	}
	mem.Release()
	src := samplesource.NewSoundSource(sound)
	sound.Release()
	return src
}

func s16At(buf []byte, i int) int16 {
	return int16(uint16(buf[i*2]) | uint16(buf[i*2+1])<<8)
}

func TestSilentMix(t *testing.T) {
	outFmt := format.Format{SampleFmt: format.S16, Channels: 2, FrameRate: 48000}
	m, err := New(outFmt, 2048)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fmtIn := format.Format{SampleFmt: format.S16, Channels: 1, FrameRate: 48000}
	mem := memory.New(4096 * fmtIn.FrameSize())
	sound, err := memory.NewSound(mem, fmtIn)
	if err != nil {
		t.Fatalf("NewSound: %v", err)
	}
	mem.Release()
	src := samplesource.NewSoundSource(sound)
	sound.Release()

	h := m.CreateHandle(src, nil)
	src.Release()
	h.SetParamf(ParamGain, 1)
	h.SetParamf(ParamPan, 0)
	h.Play()

	out := make([]byte, m.BufferSize())
	if err := m.Mix(out); err != nil {
		t.Fatalf("Mix: %v", err)
	}
	for i, b := range out {
		if b != 0 {
			t.Fatalf("out[%d] = %d, want 0 (silent source)", i, b)
		}
	}
}

func TestGainRamp(t *testing.T) {
	outFmt := format.Format{SampleFmt: format.S16, Channels: 2, FrameRate: 48000}
	m, err := New(outFmt, 2048)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	src := constantMonoS16Source(t, 10000, 4096, 48000)
	h := m.CreateHandle(src, nil)
	src.Release()
	h.SetParamf(ParamGain, 0)
	h.Play()
	h.SetParamf(ParamGain, 1)
	h.SetParamf(ParamPan, 0)

	out := make([]byte, m.BufferSize())
	if err := m.Mix(out); err != nil {
		t.Fatalf("Mix: %v", err)
	}

	numFrames := m.NumFrames()

	first := s16At(out, 0)
	last := s16At(out, (numFrames-1)*2)
	if first != 0 {
		t.Fatalf("first left sample = %d, want 0", first)
	}
	if last < 9900 || last > 10001 {
		t.Fatalf("last left sample = %d, want ~10000", last)
	}

	prevL := int16(0)
	for f := 0; f < numFrames; f++ {
		l := s16At(out, f*2)
		if l < prevL {
			t.Fatalf("left channel not monotonically non-decreasing at frame %d: %d < %d", f, l, prevL)
		}
		prevL = l
	}
}

func TestHardPan(t *testing.T) {
	outFmt := format.Format{SampleFmt: format.S16, Channels: 2, FrameRate: 48000}
	m, err := New(outFmt, 2048)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	src := constantMonoS16Source(t, 20000, 4096, 48000)
	h := m.CreateHandle(src, nil)
	src.Release()
	h.SetParamf(ParamGain, 1)
	h.SetParamf(ParamPan, 1) // hard right
	h.Play()
	h.SetParamf(ParamPan, 1) // avoid ramp artifacts: last_pan already 1

	out := make([]byte, m.BufferSize())
	if err := m.Mix(out); err != nil {
		t.Fatalf("Mix: %v", err)
	}

	numFrames := m.NumFrames()
	for f := 0; f < numFrames; f++ {
		l := s16At(out, f*2)
		if l != 0 {
			t.Fatalf("left sample at frame %d = %d, want 0 for hard-right pan", f, l)
		}
	}
	last := s16At(out, (numFrames-1)*2+1)
	if last < 19900 {
		t.Fatalf("right sample near end = %d, want ~20000", last)
	}
}

func TestSuspendedMixIsAlwaysSilent(t *testing.T) {
	outFmt := format.Format{SampleFmt: format.S16, Channels: 2, FrameRate: 48000}
	m, err := New(outFmt, 256)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	src := constantMonoS16Source(t, 20000, 4096, 48000)
	h := m.CreateHandle(src, nil)
	src.Release()
	h.SetParamf(ParamGain, 1)
	h.Play()

	m.Suspend()
	out := make([]byte, m.BufferSize())
	if err := m.Mix(out); err != nil {
		t.Fatalf("Mix: %v", err)
	}
	for i, b := range out {
		if b != 0 {
			t.Fatalf("out[%d] = %d, want 0 while suspended", i, b)
		}
	}
}

func TestHandleStateMachine(t *testing.T) {
	outFmt := format.Format{SampleFmt: format.S16, Channels: 1, FrameRate: 8000}
	m, err := New(outFmt, 64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	src := constantMonoS16Source(t, 100, 256, 8000)
	h := m.CreateHandle(src, nil)
	src.Release()

	if h.State() != HandleInitial {
		t.Fatalf("initial state = %v, want Initial", h.State())
	}
	if !h.Play() {
		t.Fatal("Play() from Initial should succeed")
	}
	if h.State() != HandlePlaying {
		t.Fatalf("state after Play = %v, want Playing", h.State())
	}
	if !h.Stop() {
		t.Fatal("Stop() from Playing should succeed")
	}
	if h.State() != HandleStopped {
		t.Fatalf("state after Stop = %v, want Stopped", h.State())
	}
	if !h.Play() {
		t.Fatal("Play() from Stopped should succeed")
	}

	h.Destroy()
	if h.State() != HandleDestroyed {
		t.Fatalf("state after Destroy = %v, want Destroyed", h.State())
	}
	if h.Play() {
		t.Fatal("Play() on a destroyed handle should fail")
	}
	if h.Stop() {
		t.Fatal("Stop() on a destroyed handle should fail")
	}
}

func TestGroupParamOverridesByStamp(t *testing.T) {
	outFmt := format.Format{SampleFmt: format.S16, Channels: 1, FrameRate: 8000}
	m, err := New(outFmt, 64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	group := NewHandleGroup(m)
	src := constantMonoS16Source(t, 100, 256, 8000)
	h := m.CreateHandle(src, group)
	src.Release()

	group.SetParamf(ParamGain, 0.5)
	if got := h.Paramf(ParamGain); got != 0.5 {
		t.Fatalf("Paramf(Gain) = %v, want group value 0.5", got)
	}

	h.SetParamf(ParamGain, 0.25)
	if got := h.Paramf(ParamGain); got != 0.25 {
		t.Fatalf("Paramf(Gain) = %v, want handle override 0.25", got)
	}

	group.SetParamf(ParamGain, 0.75)
	if got := h.Paramf(ParamGain); got != 0.75 {
		t.Fatalf("Paramf(Gain) = %v, want latest group write 0.75 (last-writer-wins)", got)
	}
}

func TestHandleGroupMigration(t *testing.T) {
	outFmt := format.Format{SampleFmt: format.S16, Channels: 1, FrameRate: 8000}
	m, err := New(outFmt, 64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	groupA := NewHandleGroup(m)
	groupB := NewHandleGroup(m)

	src := constantMonoS16Source(t, 100, 256, 8000)
	h := m.CreateHandle(src, groupA)
	src.Release()

	groupA.SetParamf(ParamPan, -1)
	groupB.SetParamf(ParamPan, 1)

	if got := h.Paramf(ParamPan); got != -1 {
		t.Fatalf("Paramf(Pan) before migration = %v, want -1 from groupA", got)
	}

	groupB.Add(h)
	if got := h.Paramf(ParamPan); got != 1 {
		t.Fatalf("Paramf(Pan) after migration = %v, want 1 from groupB", got)
	}

	h.Destroy()
}
