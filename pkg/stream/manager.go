package stream

import (
	"sync"

	"github.com/birchaudio/birch/pkg/refcount"
)

// link is a refcounted indirection between a StreamManager's iteration
// and a BufferedStream's lifetime: produce holds the link's mutex for
// the whole Produce call and kill detaches the stream pointer under
// the same mutex, so a kill either waits for a running produce or
// makes the next one a no-op. The manager's list itself is only
// mutated under StreamManager.mu.
type link struct {
	rc *refcount.Count
	mu sync.Mutex
	s  *BufferedStream
}

func newLink(s *BufferedStream) *link {
	s.Acquire()
	return &link{rc: refcount.New(), s: s}
}

// produce calls Produce on the underlying stream if it hasn't been
// killed. It reports whether the link is now dead (killed, or its
// stream has permanently ended) so the manager can unlink it.
func (l *link) produce() (dead bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.s
	if s == nil {
		return true
	}
	if err := s.Produce(); err != nil {
		return true
	}
	return s.End()
}

func (l *link) kill() {
	l.mu.Lock()
	s := l.s
	l.s = nil
	l.mu.Unlock()
	if s != nil {
		s.Release()
	}
}

func (l *link) acquire() { l.rc.Acquire() }
func (l *link) release() {
	l.rc.Release()
}

// StreamManager drives the background fill of a set of
// BufferedStreams from whichever goroutine calls Buffer, typically a
// single dedicated streaming goroutine owned by the mixer's device
// Manager. Streams add themselves with Add and are automatically
// dropped once they end or are explicitly killed with Remove.
type StreamManager struct {
	mu    sync.Mutex
	links []*link
}

// NewManager creates an empty StreamManager.
func NewManager() *StreamManager {
	return &StreamManager{}
}

// Add registers s for background buffering and returns a handle that
// can later be passed to Remove. The manager acquires its own
// reference to s.
func (m *StreamManager) Add(s *BufferedStream) *link {
	l := newLink(s)
	m.mu.Lock()
	m.links = append(m.links, l)
	m.mu.Unlock()
	return l
}

// Remove kills the stream associated with handle, so the next Buffer
// call unlinks it instead of producing from it. Safe to call
// concurrently with Buffer.
func (m *StreamManager) Remove(handle *link) {
	handle.kill()
}

// Buffer drives one round of background production across every
// registered stream, unlinking and releasing any that have ended or
// been killed. Only one goroutine may call Buffer at a time.
func (m *StreamManager) Buffer() {
	m.mu.Lock()
	links := m.links
	m.mu.Unlock()

	var dead []*link
	live := links[:0:0]
	for _, l := range links {
		if l.produce() {
			dead = append(dead, l)
			continue
		}
		live = append(live, l)
	}

	if len(dead) == 0 {
		return
	}

	m.mu.Lock()
	m.links = live
	m.mu.Unlock()

	for _, l := range dead {
		l.kill()
		l.release()
	}
}

// Destroy kills and releases every registered stream.
func (m *StreamManager) Destroy() {
	m.mu.Lock()
	links := m.links
	m.links = nil
	m.mu.Unlock()

	for _, l := range links {
		l.kill()
		l.release()
	}
}
