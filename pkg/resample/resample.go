// Package resample implements the pitch/rate linear resampler used by
// the mixer to step through a handle's samples at an arbitrary rate.
//
// The algorithm is a Bresenham-style phase accumulator operating on
// one frame of history either side of the current output position:
// advancing the input window when the accumulated phase exceeds the
// destination rate, and otherwise emitting an output frame linearly
// interpolated between the two window frames. Source and destination
// rates are pre-divided by their GCD so the accumulator stays small.
package resample

// State holds the resampler's running phase and two-frame window.
// It operates on the mixer's signed 32-bit accumulator domain so it
// composes with every input sample format without a separate code
// path per format.
type State struct {
	srcRate  int64
	dstRate  int64
	channels int

	winStart int // 0 or 1: which half of window holds the newer frame
	diff     int64

	window [2][]int32 // window[i] has `channels` samples
}

// NewState creates a resampler converting from srcRate to dstRate for
// the given channel count. Both rates are divided by their GCD before
// use, matching the reference implementation's normalization.
func NewState(dstRate, srcRate, channels int) *State {
	g := igcd(int64(dstRate), int64(srcRate))
	if g == 0 {
		g = 1
	}
	s := &State{
		srcRate:  int64(srcRate) / g,
		dstRate:  int64(dstRate) / g,
		channels: channels,
	}
	s.window[0] = make([]int32, channels)
	s.window[1] = make([]int32, channels)
	return s
}

func igcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

// HowMany returns the number of source frames required to produce out
// destination frames given the resampler's current phase. It is a
// pure function of state and does not mutate it.
func (s *State) HowMany(out int64) int64 {
	return (out*s.srcRate + s.diff) / s.dstRate
}

// Resample consumes frames from in (interleaved, s.channels samples
// per frame) and writes up to outFrames destination frames to out
// (which must be sized for outFrames*s.channels samples). It returns
// the number of source frames consumed and destination frames
// produced; production stops early if in is exhausted before
// outFrames frames have been emitted.
func (s *State) Resample(in []int32, out []int32) (consumedFrames, producedFrames int) {
	ch := s.channels
	inFrames := len(in) / ch
	outFrames := len(out) / ch

	var ci, co int
	for co < outFrames {
		if s.diff >= s.dstRate {
			if ci >= inFrames {
				break
			}
			s.winStart ^= 1
			copy(s.window[s.winStart], in[ci*ch:ci*ch+ch])
			s.diff -= s.dstRate
			ci++
			continue
		}

		older := s.window[s.winStart^1]
		newer := s.window[s.winStart]
		for c := 0; c < ch; c++ {
			out[co*ch+c] = older[c] + int32((int64(newer[c]-older[c])*s.diff)/s.dstRate)
		}
		s.diff += s.srcRate
		co++
	}

	return ci, co
}

// Reset clears the phase accumulator and window, as if the resampler
// were freshly created. Used after a seek, where the prior window's
// content no longer has any relation to the new read position.
func (s *State) Reset() {
	s.diff = 0
	s.winStart = 0
	for c := range s.window[0] {
		s.window[0][c] = 0
		s.window[1][c] = 0
	}
}
