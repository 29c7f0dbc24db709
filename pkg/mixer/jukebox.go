package mixer

import (
	"math"
	"sync/atomic"
)

// Param identifies a mixer-controlled playback parameter that can be
// set on either a Handle or its HandleGroup.
type Param int

const (
	ParamPitch Param = iota
	ParamGain
	ParamPan
	paramCount
)

func defaultParam(p Param) float64 {
	if p == ParamPan {
		return 0
	}
	return 1
}

// stampCounter is the process-wide monotonic counter every jukebox
// parameter write draws from. Comparing two stamps tells you which of
// a Handle and its HandleGroup was written more recently without
// having to walk or mutate the other side.
var stampCounter atomic.Int64

func nextStamp() int64 { return stampCounter.Add(1) }

// jukeboxState holds the per-parameter values and write stamps for
// either a Handle or a HandleGroup.
type jukeboxState struct {
	values [paramCount]atomic.Uint64 // float64 bits
	stamps [paramCount]atomic.Int64
}

func newJukeboxState() *jukeboxState {
	j := &jukeboxState{}
	for p := Param(0); p < paramCount; p++ {
		j.values[p].Store(math.Float64bits(defaultParam(p)))
	}
	return j
}

// clampParam restricts a parameter write to its valid range: Pan in
// [-1,+1], Gain non-negative, Pitch strictly positive.
func clampParam(p Param, v float64) float64 {
	switch p {
	case ParamPan:
		if v < -1 {
			return -1
		}
		if v > 1 {
			return 1
		}
	case ParamGain:
		if v < 0 {
			return 0
		}
	case ParamPitch:
		if v <= 0 {
			return 1
		}
	}
	return v
}

func (j *jukeboxState) set(p Param, v float64) {
	j.values[p].Store(math.Float64bits(clampParam(p, v)))
	j.stamps[p].Store(nextStamp())
}

func (j *jukeboxState) get(p Param) (value float64, stamp int64) {
	return math.Float64frombits(j.values[p].Load()), j.stamps[p].Load()
}
