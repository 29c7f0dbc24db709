package memory

import (
	"testing"

	"github.com/birchaudio/birch/pkg/format"
)

func TestNewSoundComputesFrameCount(t *testing.T) {
	mem := New(16) // 4 frames of stereo s16
	s, err := NewSound(mem, format.Format{SampleFmt: format.S16, Channels: 2, FrameRate: 44100})
	if err != nil {
		t.Fatalf("NewSound: %v", err)
	}
	if s.Frames() != 4 {
		t.Fatalf("Frames() = %d, want 4", s.Frames())
	}
}

func TestNewSoundRejectsMisalignedSize(t *testing.T) {
	mem := New(15)
	_, err := NewSound(mem, format.Format{SampleFmt: format.S16, Channels: 2, FrameRate: 44100})
	if err == nil {
		t.Fatal("expected error for misaligned memory size")
	}
}

func TestSoundReleaseDropsMemoryReferenceOnLast(t *testing.T) {
	mem := New(8)
	s, err := NewSound(mem, format.Format{SampleFmt: format.S16, Channels: 1, FrameRate: 8000})
	if err != nil {
		t.Fatalf("NewSound: %v", err)
	}
	mem.Release() // drop the caller's own reference; Sound holds its own

	if got := len(s.Data()); got != 8 {
		t.Fatalf("Data() length = %d, want 8 while sound is still alive", got)
	}
	s.Release()
	if got := mem.Size(); got != 0 {
		t.Fatalf("memory size after last Sound release = %d, want 0 (buffer dropped)", got)
	}
}
