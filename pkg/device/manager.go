package device

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/birchaudio/birch/pkg/mixer"
	"github.com/birchaudio/birch/pkg/stream"
)

// ManagerConfig tunes how aggressively Manager's background workers
// poll the device and the stream buffering when running in
// multi-threaded mode.
type ManagerConfig struct {
	PollInterval time.Duration
}

// DefaultManagerConfig returns a one-millisecond poll interval, tight
// enough not to starve a typical device buffer depth without spinning
// the CPU.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{PollInterval: time.Millisecond}
}

// Manager binds a Mixer to a Device back-end and a StreamManager,
// grounded on the producer/consumer goroutine split of
// pkg/audioplayer.Player. It supports two policies: single-threaded
// (everything driven inline from repeated Update calls) and
// multi-threaded (Run starts a mix+queue worker and a stream-
// buffering worker; Update then only performs dispatch housekeeping
// on the caller's own goroutine).
type Manager struct {
	mixer   *mixer.Mixer
	streams *stream.StreamManager
	dev     Device
	cfg     ManagerConfig

	buf []byte // single-threaded scratch mix buffer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewManager creates a Manager over m, streams, and dev using cfg.
func NewManager(m *mixer.Mixer, streams *stream.StreamManager, dev Device, cfg ManagerConfig) *Manager {
	return &Manager{
		mixer:   m,
		streams: streams,
		dev:     dev,
		cfg:     cfg,
		buf:     make([]byte, m.BufferSize()),
	}
}

// Open opens the underlying device back-end.
func (mgr *Manager) Open() error {
	if err := mgr.dev.Open(); err != nil {
		return fmt.Errorf("device: open: %w", err)
	}
	return nil
}

// AddStream registers s for background buffering.
func (mgr *Manager) AddStream(s *stream.BufferedStream) {
	mgr.streams.Add(s)
}

// Run starts the multi-threaded policy: one goroutine mixes and
// queues to the device, another keeps buffered streams filled. The
// caller should still call Update periodically from its own thread to
// run finish/destroy dispatch housekeeping there rather than on either
// background worker.
func (mgr *Manager) Run() {
	mgr.mu.Lock()
	if mgr.running {
		mgr.mu.Unlock()
		return
	}
	mgr.running = true
	mgr.stopCh = make(chan struct{})
	stopCh := mgr.stopCh
	mgr.mu.Unlock()

	mgr.wg.Add(2)
	go mgr.streamWorker(stopCh)
	go mgr.mixWorker(stopCh)
}

// Stop halts the background workers started by Run and blocks until
// both have exited. No-op if Run was never called or Stop already
// ran.
func (mgr *Manager) Stop() {
	mgr.mu.Lock()
	if !mgr.running {
		mgr.mu.Unlock()
		return
	}
	mgr.running = false
	close(mgr.stopCh)
	mgr.mu.Unlock()

	mgr.wg.Wait()
}

// Update runs dispatch housekeeping. In single-threaded mode (Run
// never called), it additionally buffers streams and drains the
// device's free presentation buffers inline, so calling Update in a
// loop is sufficient to drive playback with no background goroutines.
func (mgr *Manager) Update() error {
	mgr.mixer.Dispatch()

	mgr.mu.Lock()
	running := mgr.running
	mgr.mu.Unlock()
	if running {
		return nil
	}

	mgr.streams.Buffer()
	return mgr.mixAndQueue(mgr.buf)
}

func (mgr *Manager) mixAndQueue(buf []byte) error {
	free, err := mgr.dev.Check()
	if err != nil {
		return fmt.Errorf("device: check: %w", err)
	}
	for i := 0; i < free; i++ {
		if err := mgr.mixer.Mix(buf); err != nil {
			return fmt.Errorf("device: mix: %w", err)
		}
		if err := mgr.dev.Queue(buf); err != nil {
			return fmt.Errorf("device: queue: %w", err)
		}
	}
	return nil
}

func (mgr *Manager) streamWorker(stop <-chan struct{}) {
	defer mgr.wg.Done()
	for {
		select {
		case <-stop:
			return
		default:
		}
		mgr.streams.Buffer()
		time.Sleep(mgr.cfg.PollInterval)
	}
}

func (mgr *Manager) mixWorker(stop <-chan struct{}) {
	defer mgr.wg.Done()
	buf := make([]byte, mgr.mixer.BufferSize())
	for {
		select {
		case <-stop:
			return
		default:
		}
		if err := mgr.mixAndQueue(buf); err != nil {
			slog.Error("mix worker tick failed", "error", err)
			time.Sleep(mgr.cfg.PollInterval)
			continue
		}
		time.Sleep(mgr.cfg.PollInterval)
	}
}

// Close stops any running background workers, destroys every
// registered stream, and closes the device back-end.
func (mgr *Manager) Close() error {
	mgr.Stop()
	mgr.streams.Destroy()
	if err := mgr.dev.Close(); err != nil {
		return fmt.Errorf("device: close: %w", err)
	}
	return nil
}
