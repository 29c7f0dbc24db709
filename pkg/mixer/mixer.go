// Package mixer implements the realtime PCM mixer: a fixed-size mix
// window pulled from a set of playing Handles, each resampled to the
// mixer's output rate and blended with a linear gain/pan ramp.
package mixer

import (
	"sync"
	"sync/atomic"

	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/gaerr"
	"github.com/birchaudio/birch/pkg/samplesource"
)

// Mixer owns a fixed output Format and mix window size for its entire
// lifetime: both are supplied at construction and never change, since
// every Handle's resampler and the mixer's own accumulator buffer are
// sized against them once.
type Mixer struct {
	outFormat format.Format
	numFrames int

	suspended atomic.Bool

	mixMu   sync.Mutex
	mixList []*Handle

	dispatchMu   sync.Mutex
	dispatchList []*Handle

	accum []int32 // reused scratch accumulator, numFrames*channels

	defaultGroup *HandleGroup
}

// New creates a Mixer producing numFrames-frame windows in outFormat.
func New(outFormat format.Format, numFrames int) (*Mixer, error) {
	if !outFormat.Valid() {
		return nil, gaerr.New(gaerr.MisParam, "invalid output format %v", outFormat)
	}
	if numFrames <= 0 {
		return nil, gaerr.New(gaerr.MisParam, "numFrames must be positive")
	}
	m := &Mixer{
		outFormat: outFormat,
		numFrames: numFrames,
		accum:     make([]int32, numFrames*outFormat.Channels),
	}
	m.defaultGroup = NewHandleGroup(m)
	return m, nil
}

// DefaultGroup returns the mixer's always-present default group. Every
// Handle created with a nil group joins it, and HandleGroup.Disown
// sends handles back to it.
func (m *Mixer) DefaultGroup() *HandleGroup { return m.defaultGroup }

// Format returns the mixer's fixed output format.
func (m *Mixer) Format() format.Format { return m.outFormat }

// NumFrames returns the mixer's fixed mix window size, in frames.
func (m *Mixer) NumFrames() int { return m.numFrames }

// Suspend stops Mix from producing audio; it continues to zero-fill
// its output buffer so a device polling loop still gets silence
// rather than stale data.
func (m *Mixer) Suspend() { m.suspended.Store(true) }

// Unsuspend resumes normal mixing.
func (m *Mixer) Unsuspend() { m.suspended.Store(false) }

// CreateHandle creates a new Handle over src, optionally joining
// group. The handle starts in HandleInitial and produces no audio
// until Play is called.
func (m *Mixer) CreateHandle(src samplesource.SampleSource, group *HandleGroup) *Handle {
	if group == nil {
		group = m.defaultGroup
	}
	return newHandle(m, src, group)
}

func (m *Mixer) registerHandle(h *Handle) {
	h.Acquire() // mixer's own reference, released when dispatch tears the handle down
	m.mixMu.Lock()
	m.mixList = append(m.mixList, h)
	m.mixMu.Unlock()

	m.dispatchMu.Lock()
	m.dispatchList = append(m.dispatchList, h)
	m.dispatchMu.Unlock()
}

// BufferSize returns the byte size of a Mix output buffer for this
// mixer's format and window size.
func (m *Mixer) BufferSize() int { return m.numFrames * m.outFormat.FrameSize() }

// Mix renders exactly one window into out, which must be sized
// BufferSize() bytes. It never blocks on a handle's source; a source
// that isn't Ready is treated as contributing silence for this
// window.
func (m *Mixer) Mix(out []byte) error {
	if len(out) != m.BufferSize() {
		return gaerr.New(gaerr.MisParam, "output buffer is %d bytes, want %d", len(out), m.BufferSize())
	}
	for i := range m.accum {
		m.accum[i] = 0
	}
	if m.suspended.Load() {
		clear(out)
		return nil
	}

	m.mixMu.Lock()
	handles := m.mixList
	m.mixMu.Unlock()

	keep := make([]*Handle, 0, len(handles))
	for _, h := range handles {
		removeFromMix := mixHandle(h, m.outFormat, m.numFrames, m.accum)
		if !removeFromMix {
			keep = append(keep, h)
		}
	}

	if len(keep) != len(handles) {
		m.mixMu.Lock()
		m.mixList = keep
		m.mixMu.Unlock()
	}

	sampleSize := m.outFormat.SampleFmt.BytesPerSample()
	for i, v := range m.accum {
		format.FromAccum(m.outFormat.SampleFmt, v, out[i*sampleSize:])
	}
	return nil
}

// Dispatch runs housekeeping for handles that have reached
// HandleFinished (invoking their finish callback once) or
// HandleDestroyed (releasing the mixer's reference to them). It
// should be called periodically from a goroutine distinct from the
// one calling Mix, so teardown never competes with the mix deadline.
func (m *Mixer) Dispatch() {
	m.dispatchMu.Lock()
	handles := m.dispatchList
	m.dispatchMu.Unlock()

	keep := make([]*Handle, 0, len(handles))
	var toRelease []*Handle
	for _, h := range handles {
		state := h.State()
		if state == HandleFinished && h.finishPending.CompareAndSwap(true, false) {
			if h.onFinish != nil {
				h.onFinish(h)
			}
		}
		if state == HandleDestroyed {
			toRelease = append(toRelease, h)
			continue
		}
		keep = append(keep, h)
	}

	if len(toRelease) > 0 {
		m.dispatchMu.Lock()
		m.dispatchList = keep
		m.dispatchMu.Unlock()

		m.mixMu.Lock()
		m.mixList = filterOutDestroyed(m.mixList)
		m.mixMu.Unlock()

		for _, h := range toRelease {
			h.Release()
		}
	}
}

func filterOutDestroyed(handles []*Handle) []*Handle {
	keep := handles[:0]
	for _, h := range handles {
		if h.State() != HandleDestroyed {
			keep = append(keep, h)
		}
	}
	return keep
}
