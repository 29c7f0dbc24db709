package mixer

import (
	"log/slog"

	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/resample"
)

// mixHandle renders h's contribution to one mix window directly into
// accum (interleaved int32 samples in outFmt's channel layout,
// numFrames frames long) and reports whether h should be dropped from
// the mix list (it has just finished or been destroyed). Handles that
// are Initial or Stopped contribute nothing but stay in the list.
func mixHandle(h *Handle, outFmt format.Format, numFrames int, accum []int32) (remove bool) {
	state := h.State()
	if state == HandleDestroyed {
		return true
	}

	// Reaching end of stream is only ever observed here, at the top of
	// a mix tick for a still-playing handle; transitioning before
	// touching the source at all means a handle that already drained
	// on a prior tick is retired without attempting another read.
	if state == HandlePlaying && h.source.End() {
		if h.state.CompareAndSwap(int32(HandlePlaying), int32(HandleFinished)) {
			h.finishPending.Store(true)
		}
		return true
	}

	if state != HandlePlaying {
		return false
	}

	gain := h.Paramf(ParamGain)
	pan := h.Paramf(ParamPan)
	pitch := h.Paramf(ParamPitch)
	if pitch <= 0 {
		pitch = 1
	}

	srcFmt := h.source.Format()
	effRate := effectiveSrcRate(srcFmt.FrameRate, pitch)
	resampling := effRate != outFmt.FrameRate

	var resamp *resample.State
	var needed int64
	if resampling {
		h.mu.Lock()
		if h.resamp == nil || h.resampSrcRate != effRate {
			h.resamp = resample.NewState(outFmt.FrameRate, effRate, srcFmt.Channels)
			h.resampSrcRate = effRate
		}
		resamp = h.resamp
		h.mu.Unlock()

		needed = resamp.HowMany(int64(numFrames))
		if needed < 0 {
			needed = 0
		}
	} else {
		// Source already runs at the mixer's rate with no pitch shift:
		// read straight through rather than round-tripping through the
		// resampler's window, which would otherwise inject a warm-up
		// delay even for a 1:1 conversion.
		needed = int64(numFrames)
	}
	requested := needed

	if !h.source.Ready() {
		slog.Debug("handle source not ready, skipping mix window", "requested_frames", requested)
		return false
	}

	h.mu.Lock()
	lastGain, lastPan := h.lastGain, h.lastPan
	h.mu.Unlock()

	srcFrameSize := srcFmt.FrameSize()
	raw := make([]byte, needed*int64(srcFrameSize))
	gotFrames, _ := readAll(h.source, raw)

	srcAccum := make([]int32, int64(gotFrames)*int64(srcFmt.Channels))
	decodeToAccum(srcFmt, raw[:int64(gotFrames)*int64(srcFrameSize)], srcAccum)

	var channelMatched []int32
	var produced int
	if resampling {
		outAccum := make([]int32, numFrames*outFmt.Channels)
		resampleView := outAccumChannelView(outAccum, outFmt.Channels, srcFmt.Channels)
		_, produced = resamp.Resample(srcAccum, resampleView)
		channelMatched = matchChannels(outAccum, resampleView, outFmt.Channels, srcFmt.Channels, produced)
	} else {
		produced = gotFrames
		channelMatched = matchChannelsDirect(srcAccum, outFmt.Channels, srcFmt.Channels, numFrames, produced)
	}

	applyGainPan(accum, channelMatched, outFmt.Channels, produced, lastGain, gain, lastPan, pan)

	h.mu.Lock()
	h.lastGain, h.lastPan = gain, pan
	h.mu.Unlock()

	return false
}

// effectiveSrcRate folds pitch into the rate the resampler treats as
// the source's rate: pitch > 1 plays back faster, which is equivalent
// to the source running at a proportionally higher sample rate.
func effectiveSrcRate(srcRate int, pitch float64) int {
	r := int(float64(srcRate) * pitch)
	if r <= 0 {
		r = 1
	}
	return r
}

func readAll(src interface {
	Read([]byte) (int, error)
}, dst []byte) (frames int, err error) {
	// Single best-effort Read; sources are expected to hand back
	// whatever is currently available rather than block, so a short
	// read here is a normal underrun, not an error.
	_ = frames
	n, e := src.Read(dst)
	return n, e
}

func decodeToAccum(fmtIn format.Format, raw []byte, out []int32) {
	sampleSize := fmtIn.SampleFmt.BytesPerSample()
	for i := range out {
		off := i * sampleSize
		if off+sampleSize > len(raw) {
			out[i] = 0
			continue
		}
		out[i] = format.ToAccum(fmtIn.SampleFmt, raw[off:off+sampleSize])
	}
}

// outAccumChannelView returns the slice the resampler should write
// into: when channel counts already match, that is outAccum itself,
// otherwise a same-length scratch buffer in the source's channel
// count that matchChannels will later fan out or down-mix from.
func outAccumChannelView(outAccum []int32, outCh, srcCh int) []int32 {
	if outCh == srcCh {
		return outAccum
	}
	frames := len(outAccum) / outCh
	return make([]int32, frames*srcCh)
}

// matchChannelsDirect is matchChannels' counterpart for the
// non-resampling fast path: src is already the final, un-rate-
// converted decode of the source (no separate resampler output
// buffer exists to reuse), so the equal-channel case returns it
// unchanged instead of an already-populated outAccum.
func matchChannelsDirect(src []int32, outCh, srcCh, numFrames, produced int) []int32 {
	if outCh == srcCh {
		return src
	}
	outAccum := make([]int32, numFrames*outCh)
	return matchChannels(outAccum, src, outCh, srcCh, produced)
}

// matchChannels reconciles a produced-frames buffer in srcCh channels
// with the mixer's outCh channels, expanding mono to stereo or
// averaging stereo down to mono as needed. If the channel counts
// already matched, buf is outAccum and is returned unchanged.
func matchChannels(outAccum, resampled []int32, outCh, srcCh int, produced int) []int32 {
	if outCh == srcCh {
		return outAccum
	}

	frames := len(outAccum) / outCh
	src := resampled
	result := make([]int32, frames*outCh)

	for f := 0; f < produced; f++ {
		switch {
		case srcCh == 1 && outCh == 2:
			v := src[f]
			result[f*2] = v
			result[f*2+1] = v
		case srcCh == 2 && outCh == 1:
			result[f] = (src[f*2] + src[f*2+1]) / 2
		}
	}
	return result
}

// applyGainPan ramps gain/pan linearly from (lastGain,lastPan) to
// (gain,pan) across the produced frames and adds the result into
// accum. pan is in [-1,+1] with 0 centered. It uses a piecewise-linear
// law rather than constant-power: panning hard left or right only
// ever attenuates the far channel, never boosts the near one.
func applyGainPan(accum []int32, src []int32, channels, produced int, lastGain, gain, lastPan, pan float64) {
	if produced <= 0 {
		return
	}
	for f := 0; f < produced; f++ {
		t := float64(f) / float64(produced)
		g := lastGain + (gain-lastGain)*t
		p := lastPan + (pan-lastPan)*t

		if channels == 1 {
			accum[f] += int32(float64(src[f]) * g)
			continue
		}

		lmul := g
		if p >= 0 {
			lmul = g * (1 - p)
		}
		rmul := g
		if p <= 0 {
			rmul = g * (1 + p)
		}

		l := src[f*2]
		r := src[f*2+1]
		accum[f*2] += int32(float64(l) * lmul)
		accum[f*2+1] += int32(float64(r) * rmul)
	}
}
