package mixer

import (
	"sync"
	"sync/atomic"

	"github.com/birchaudio/birch/pkg/refcount"
)

// groupSeq assigns each HandleGroup a creation-order id, used to pick
// a deterministic lock order when an operation needs both a source
// and a destination group's mutex at once.
var groupSeq atomic.Int64

// HandleGroup lets a set of Handles share pitch/gain/pan control: a
// group-level SetParamf affects every handle whose own parameter
// hasn't been written more recently, resolved per-parameter via
// jukebox stamps rather than by eagerly pushing the value into every
// member (which would cost O(group size) per write).
type HandleGroup struct {
	rc    *refcount.Count
	state *jukeboxState
	mixer *Mixer
	seq   int64

	mu      sync.Mutex
	handles []*Handle
}

// NewHandleGroup creates an empty group owned by m, with every
// parameter at its default (gain=1, pan=0, pitch=1). Handles created
// against m may be migrated into it with Add.
func NewHandleGroup(m *Mixer) *HandleGroup {
	return &HandleGroup{
		rc:    refcount.New(),
		state: newJukeboxState(),
		mixer: m,
		seq:   groupSeq.Add(1),
	}
}

// SetParamf sets a group-wide parameter value.
func (g *HandleGroup) SetParamf(p Param, v float64) {
	g.state.set(p, v)
}

// Paramf returns the group's own value for p, ignoring any member
// handle's more-recent override.
func (g *HandleGroup) Paramf(p Param) float64 {
	v, _ := g.state.get(p)
	return v
}

func (g *HandleGroup) addMember(h *Handle) {
	g.mu.Lock()
	g.handles = append(g.handles, h)
	g.mu.Unlock()
}

func (g *HandleGroup) removeMember(h *Handle) {
	g.mu.Lock()
	for i, m := range g.handles {
		if m == h {
			g.handles = append(g.handles[:i], g.handles[i+1:]...)
			break
		}
	}
	g.mu.Unlock()
}

// lockPair locks a and b in a fixed order (by creation sequence) so
// two concurrent operations that each need both groups' mutexes can
// never deadlock against each other.
func lockPair(a, b *HandleGroup) (unlock func()) {
	if a.seq == b.seq {
		a.mu.Lock()
		return a.mu.Unlock
	}
	first, second := a, b
	if first.seq > second.seq {
		first, second = second, first
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// Add moves h out of its current group (if any) and into g, under
// both groups' mutexes held in a fixed order.
func (g *HandleGroup) Add(h *Handle) {
	h.mu.Lock()
	old := h.group
	h.mu.Unlock()

	if old == g {
		return
	}

	if old != nil {
		unlock := lockPair(old, g)
		old.removeMemberLocked(h)
		g.addMemberLocked(h)
		unlock()
		old.Release()
	} else {
		g.mu.Lock()
		g.addMemberLocked(h)
		g.mu.Unlock()
	}
	g.Acquire()

	h.mu.Lock()
	h.group = g
	h.mu.Unlock()
}

func (g *HandleGroup) addMemberLocked(h *Handle)    { g.handles = append(g.handles, h) }
func (g *HandleGroup) removeMemberLocked(h *Handle) {
	for i, m := range g.handles {
		if m == h {
			g.handles = append(g.handles[:i], g.handles[i+1:]...)
			break
		}
	}
}

// Transfer splices every handle currently in g into dst, leaving g
// empty.
func (g *HandleGroup) Transfer(dst *HandleGroup) {
	unlock := lockPair(g, dst)
	moving := g.handles
	g.handles = nil
	dst.handles = append(dst.handles, moving...)
	unlock()

	for _, h := range moving {
		dst.Acquire()
		h.mu.Lock()
		h.group = dst
		h.mu.Unlock()
		g.Release()
	}
}

// Disown moves every handle in g to the mixer's default group.
func (g *HandleGroup) Disown() {
	if g.mixer == nil {
		return
	}
	g.Transfer(g.mixer.DefaultGroup())
}

// Destroy destroys every handle currently in g, then tears down g
// itself. Handles destroyed this way still need their mixer's
// Dispatch called to actually free their resources.
func (g *HandleGroup) Destroy() {
	g.mu.Lock()
	handles := g.handles
	g.handles = nil
	g.mu.Unlock()

	for _, h := range handles {
		h.Destroy()
		g.Release()
	}
}

func (g *HandleGroup) Acquire() { g.rc.Acquire() }
func (g *HandleGroup) Release() {
	g.rc.Release()
}
