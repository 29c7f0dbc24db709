package mixer

import (
	"sync"
	"sync/atomic"

	"github.com/birchaudio/birch/pkg/refcount"
	"github.com/birchaudio/birch/pkg/resample"
	"github.com/birchaudio/birch/pkg/samplesource"
)

// HandleState is the lifecycle a Handle moves through. Destroy only
// ever marks Destroyed; the mixer's dispatch pass does the actual
// cleanup, so the mix thread (which may be mid-mix for this handle)
// never has it yanked out from under it.
type HandleState int32

const (
	HandleInitial HandleState = iota
	HandlePlaying
	HandleStopped
	HandleFinished
	HandleDestroyed
)

// FinishCallback is invoked (at most once) once a Handle transitions
// to HandleFinished, from the mixer's dispatch goroutine rather than
// the mix goroutine.
type FinishCallback func(h *Handle)

// Handle is a single playing (or paused, or finished) instance of a
// SampleSource within a Mixer.
type Handle struct {
	rc    *refcount.Count
	mixer *Mixer

	state atomic.Int32

	source samplesource.SampleSource
	group  *HandleGroup
	own    *jukeboxState

	mu       sync.Mutex
	lastGain float64
	lastPan  float64
	resamp   *resample.State
	resampSrcRate int

	onFinish      FinishCallback
	finishPending atomic.Bool
}

func newHandle(m *Mixer, src samplesource.SampleSource, group *HandleGroup) *Handle {
	src.Acquire()
	group.Acquire()
	h := &Handle{
		rc:       refcount.New(),
		mixer:    m,
		source:   src,
		group:    group,
		own:      newJukeboxState(),
		lastGain: 1,
		lastPan:  0,
	}
	h.state.Store(int32(HandleInitial))
	group.addMember(h)
	return h
}

// State returns the handle's current lifecycle state.
func (h *Handle) State() HandleState { return HandleState(h.state.Load()) }

// Play transitions Initial or Stopped to Playing. Returns false if the
// handle has already finished or been destroyed.
func (h *Handle) Play() bool {
	for {
		cur := HandleState(h.state.Load())
		switch cur {
		case HandleInitial, HandleStopped:
			if h.state.CompareAndSwap(int32(cur), int32(HandlePlaying)) {
				if cur == HandleInitial {
					// Prime the ramp start point from whatever gain/pan
					// are in effect right now, so a handle that starts
					// playing at a non-default value (e.g. gain 0 for a
					// fade-in) doesn't pop on its first mix window.
					gain := h.Paramf(ParamGain)
					pan := h.Paramf(ParamPan)
					h.mu.Lock()
					h.lastGain, h.lastPan = gain, pan
					h.mu.Unlock()
					h.mixer.registerHandle(h)
				}
				return true
			}
		case HandlePlaying:
			return true
		default:
			return false
		}
	}
}

// Stop transitions Playing to Stopped. No-op otherwise.
func (h *Handle) Stop() bool {
	return h.state.CompareAndSwap(int32(HandlePlaying), int32(HandleStopped))
}

// Destroy marks the handle for teardown. Actual cleanup happens on the
// mixer's next dispatch pass.
func (h *Handle) Destroy() {
	h.state.Store(int32(HandleDestroyed))
}

// SetFinishCallback installs the callback invoked when the handle
// naturally reaches end of stream.
func (h *Handle) SetFinishCallback(cb FinishCallback) {
	h.onFinish = cb
}

// SetParamf sets one of the handle's own pitch/gain/pan values,
// overriding the group's value until the group is itself written
// more recently.
func (h *Handle) SetParamf(p Param, v float64) {
	h.own.set(p, v)
}

// Paramf resolves the effective value of p: whichever of the handle's
// own value and its group's value carries the larger write stamp.
func (h *Handle) Paramf(p Param) float64 {
	ownV, ownStamp := h.own.get(p)

	h.mu.Lock()
	group := h.group
	h.mu.Unlock()

	groupV, groupStamp := group.state.get(p)
	if groupStamp > ownStamp {
		return groupV
	}
	return ownV
}

// TellParam reports a playback position in frames, mirroring the
// spec's {Current, Total} tell parameter pair. Total is -1 if unknown.
type TellParam struct {
	Current int64
	Total   int64
}

// Tell reports the underlying source's current and total frame
// position.
func (h *Handle) Tell() TellParam {
	cur, total := h.source.Tell()
	return TellParam{Current: cur, Total: total}
}

// Seek repositions the underlying source. Fails with MisUnsup if the
// source isn't seekable.
func (h *Handle) Seek(frame int64) error {
	return h.source.Seek(frame)
}

func (h *Handle) Acquire() { h.rc.Acquire() }
func (h *Handle) Release() {
	if h.rc.Release() {
		h.source.Release()
		h.mu.Lock()
		group := h.group
		h.mu.Unlock()
		group.removeMember(h)
		group.Release()
	}
}
