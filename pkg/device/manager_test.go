package device

import (
	"sync"
	"testing"
	"time"

	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/memory"
	"github.com/birchaudio/birch/pkg/mixer"
	"github.com/birchaudio/birch/pkg/samplesource"
	"github.com/birchaudio/birch/pkg/stream"
)

// fakeDevice is an in-memory Device used to exercise Manager without
// real audio hardware. It always reports one free buffer and records
// every buffer it's handed.
type fakeDevice struct {
	mu       sync.Mutex
	opened   bool
	closed   bool
	queued   [][]byte
	freeBufs int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{freeBufs: 1}
}

func (d *fakeDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = true
	return nil
}

func (d *fakeDevice) Check() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.freeBufs, nil
}

func (d *fakeDevice) Queue(buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(buf))
	copy(cp, buf)
	d.queued = append(d.queued, cp)
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) queuedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queued)
}

func newTestMixerWithSource(t *testing.T) (*mixer.Mixer, *mixer.Handle) {
	t.Helper()
	outFmt := format.Format{SampleFmt: format.S16, Channels: 2, FrameRate: 8000}
	m, err := mixer.New(outFmt, 256)
	if err != nil {
		t.Fatalf("mixer.New: %v", err)
	}

	fmtIn := format.Format{SampleFmt: format.S16, Channels: 1, FrameRate: 8000}
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
	h.SetParamf(mixer.ParamGain, 1)
	h.Play()
	return m, h
}

func TestManagerSingleThreadedUpdateQueuesMixedAudio(t *testing.T) {
	m, _ := newTestMixerWithSource(t)
	dev := newFakeDevice()
	mgr := NewManager(m, stream.NewManager(), dev, DefaultManagerConfig())

	if err := mgr.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !dev.opened {
		t.Fatal("Open did not reach the underlying device")
	}

	for i := 0; i < 3; i++ {
		if err := mgr.Update(); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	if got := dev.queuedCount(); got != 3 {
		t.Fatalf("queued buffers = %d, want 3 (one free buffer per Update call)", got)
	}
	for _, buf := range dev.queued {
		if len(buf) != m.BufferSize() {
			t.Fatalf("queued buffer size = %d, want %d", len(buf), m.BufferSize())
		}
	}

	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !dev.closed {
		t.Fatal("Close did not reach the underlying device")
	}
}

func TestManagerMultiThreadedRunQueuesInBackground(t *testing.T) {
	m, _ := newTestMixerWithSource(t)
	dev := newFakeDevice()
	mgr := NewManager(m, stream.NewManager(), dev, ManagerConfig{PollInterval: time.Millisecond})

	if err := mgr.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	mgr.Run()

	deadline := time.Now().Add(time.Second)
	for dev.queuedCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if dev.queuedCount() == 0 {
		t.Fatal("background mix worker never queued a buffer")
	}

	// Update in multi-threaded mode should only run dispatch, not
	// compete with the background mix worker for device access.
	if err := mgr.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestManagerCloseIsIdempotentWithoutRun(t *testing.T) {
	m, _ := newTestMixerWithSource(t)
	dev := newFakeDevice()
	mgr := NewManager(m, stream.NewManager(), dev, DefaultManagerConfig())

	if err := mgr.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("second Close (Stop should be a no-op): %v", err)
	}
}
