package samplesource

import (
	"testing"

	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/memory"
)

func makeMonoU8Sound(t *testing.T, samples ...byte) *memory.Sound {
	t.Helper()
	mem := memory.New(len(samples))
	copy(mem.Bytes(), samples)
	s, err := memory.NewSound(mem, format.Format{SampleFmt: format.U8, Channels: 1, FrameRate: 8000})
	if err != nil {
		t.Fatalf("NewSound: %v", err)
	}
	mem.Release()
	return s
}

func TestSoundSourceReadsExactlyAvailable(t *testing.T) {
	sound := makeMonoU8Sound(t, 1, 2, 3, 4, 5)
	src := NewSoundSource(sound)
	sound.Release()
	defer src.Release()

	buf := make([]byte, 3)
	n, err := src.Read(buf)
	if err != nil || n != 3 {
		t.Fatalf("Read = %d,%v", n, err)
	}
	if src.End() {
		t.Fatal("End() true before exhausting sound")
	}

	buf2 := make([]byte, 10)
	n, err = src.Read(buf2)
	if err != nil || n != 2 {
		t.Fatalf("second Read = %d,%v, want 2,nil", n, err)
	}
	if !src.End() {
		t.Fatal("End() should be true once fully consumed")
	}
}

func TestSoundSourceSeekTell(t *testing.T) {
	sound := makeMonoU8Sound(t, 1, 2, 3, 4, 5)
	src := NewSoundSource(sound)
	sound.Release()
	defer src.Release()

	if err := src.Seek(3); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	cur, total := src.Tell()
	if cur != 3 || total != 5 {
		t.Fatalf("Tell() = %d,%d want 3,5", cur, total)
	}

	buf := make([]byte, 5)
	n, _ := src.Read(buf)
	if n != 2 || buf[0] != 4 || buf[1] != 5 {
		t.Fatalf("Read after seek = %d %v, want [4 5]", n, buf[:n])
	}
}

func TestLoopSourceLoopsAtTrigger(t *testing.T) {
	sound := makeMonoU8Sound(t, 10, 20, 30, 40, 50)
	src := NewSoundSource(sound)
	sound.Release()

	loop, err := NewLoopSource(src, 3, 1) // on reaching frame 3, loop back to frame 1
	src.Release()
	if err != nil {
		t.Fatalf("NewLoopSource: %v", err)
	}
	defer loop.Release()

	buf := make([]byte, 7)
	n, err := loop.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 7 {
		t.Fatalf("Read n = %d, want 7", n)
	}
	want := []byte{10, 20, 30, 20, 30, 20, 30}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf = %v, want %v", buf[:len(want)], want)
		}
	}
	if loop.LoopCount() != 3 {
		t.Fatalf("LoopCount() = %d, want 3", loop.LoopCount())
	}
}

func TestLoopSourceRequiresSeekable(t *testing.T) {
	sound := makeMonoU8Sound(t, 1, 2, 3)
	src := NewSoundSource(sound)
	sound.Release()
	defer src.Release()

	_, err := NewLoopSource(src, -1, 0)
	if err != nil {
		t.Fatalf("expected success with a seekable source, got %v", err)
	}
	if _, err := NewLoopSource(unseekableSource{src}, -1, 0); err == nil {
		t.Fatal("expected an error wrapping a source that is not seekable")
	}
}

// unseekableSource is a SoundSource that reports itself not seekable.
type unseekableSource struct{ *SoundSource }

func (unseekableSource) Seekable() bool { return false }
