// Package samplesource defines the decoded-PCM-frame source
// abstraction the mixer pulls from, plus sources that wrap an
// in-memory Sound or add looping to another source.
package samplesource

import "github.com/birchaudio/birch/pkg/format"

// SampleSource is a reference-counted source of decoded PCM frames in
// a fixed Format. The mixer calls Read repeatedly to fill its
// per-handle mix window; everything else (file decoding, network
// buffering, looping) lives behind this one interface.
type SampleSource interface {
	// Format returns the format frames are produced in. It must not
	// change over the source's lifetime.
	Format() format.Format

	// Read decodes up to len(dst)/Format().FrameSize() frames into
	// dst and returns the number of frames actually written. A short
	// read that is not accompanied by End()==true means try again
	// later (e.g. a buffered stream still filling).
	Read(dst []byte) (frames int, err error)

	// End reports whether the source has no more frames to produce,
	// ever (as opposed to a transient underrun).
	End() bool

	// Ready reports whether Read is likely to make progress right
	// now; used by pull-based consumers to avoid busy-looping on a
	// source that is still filling.
	Ready() bool

	// Seekable reports whether Seek is supported.
	Seekable() bool
	// Seek repositions to the given frame offset.
	Seek(frame int64) error
	// Tell reports the current frame offset and, if known, the total
	// frame count; total is -1 if unknown.
	Tell() (current int64, total int64)

	Acquire()
	Release()
}
