package samplesource

import (
	"sync/atomic"

	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/gaerr"
	"github.com/birchaudio/birch/pkg/refcount"
)

// LoopSource wraps a seekable inner SampleSource, transparently
// seeking back to a target frame whenever playback reaches a trigger
// frame. TriggerFrame may be negative, meaning "the inner source's
// total frame count", which every Read takes from the inner source's
// Tell. If that total is unknown (-1), the loop never triggers.
type LoopSource struct {
	rc    *refcount.Count
	inner SampleSource

	triggerFrame atomic.Int64
	targetFrame  atomic.Int64
	loopEnable   atomic.Bool
	loopCount    atomic.Int64
}

// NewLoopSource wraps inner in a LoopSource. inner must be Seekable;
// NewLoopSource returns a MisUnsup error otherwise.
func NewLoopSource(inner SampleSource, triggerFrame, targetFrame int64) (*LoopSource, error) {
	if !inner.Seekable() {
		return nil, gaerr.New(gaerr.MisUnsup, "loop source requires a seekable inner source")
	}
	inner.Acquire()
	l := &LoopSource{rc: refcount.New(), inner: inner}
	l.triggerFrame.Store(triggerFrame)
	l.targetFrame.Store(targetFrame)
	l.loopEnable.Store(true)
	return l, nil
}

// SetLoop configures the trigger/target frames and enables looping.
func (l *LoopSource) SetLoop(triggerFrame, targetFrame int64) {
	l.triggerFrame.Store(triggerFrame)
	l.targetFrame.Store(targetFrame)
	l.loopEnable.Store(true)
}

// SetLoopEnabled toggles looping without forgetting the configured
// trigger/target frames.
func (l *LoopSource) SetLoopEnabled(enabled bool) { l.loopEnable.Store(enabled) }

// LoopCount returns the number of times the loop has triggered.
func (l *LoopSource) LoopCount() int64 { return l.loopCount.Load() }

func (l *LoopSource) Format() format.Format { return l.inner.Format() }

func (l *LoopSource) Read(dst []byte) (int, error) {
	frameSize := l.inner.Format().FrameSize()
	wantFrames := len(dst) / frameSize

	trigger := l.triggerFrame.Load()
	if trigger < 0 {
		_, total := l.inner.Tell()
		trigger = total
	}

	var produced int
	for produced < wantFrames {
		pos, _ := l.inner.Tell()
		if !l.loopEnable.Load() || trigger <= pos {
			n, err := l.inner.Read(dst[produced*frameSize:])
			produced += n
			if err != nil || n == 0 {
				return produced, err
			}
			continue
		}

		remaining := trigger - pos
		want := int64(wantFrames - produced)
		if want > remaining {
			want = remaining
		}
		n, err := l.inner.Read(dst[produced*frameSize : produced*frameSize+int(want)*frameSize])
		produced += n
		if err != nil {
			return produced, err
		}
		if n == 0 {
			break
		}

		newPos := pos + int64(n)
		if newPos >= trigger {
			if err := l.inner.Seek(l.targetFrame.Load()); err != nil {
				return produced, err
			}
			l.loopCount.Add(1)
		}
	}

	return produced, nil
}

func (l *LoopSource) End() bool {
	if l.loopEnable.Load() {
		return false
	}
	return l.inner.End()
}

func (l *LoopSource) Ready() bool    { return l.inner.Ready() }
func (l *LoopSource) Seekable() bool { return l.inner.Seekable() }
func (l *LoopSource) Seek(frame int64) error {
	return l.inner.Seek(frame)
}
func (l *LoopSource) Tell() (current int64, total int64) { return l.inner.Tell() }

func (l *LoopSource) Acquire() { l.rc.Acquire() }
func (l *LoopSource) Release() {
	if l.rc.Release() {
		l.inner.Release()
	}
}
