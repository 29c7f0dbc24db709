// Package stream implements background-filled, seekable buffering on
// top of a SampleSource: BufferedStream decouples a slow or bursty
// decoder from the mixer's real-time pull, and StreamManager drives a
// set of BufferedStreams' background fill from one goroutine.
package stream

import (
	"sync"
	"sync/atomic"

	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/gaerr"
	"github.com/birchaudio/birch/pkg/refcount"
	"github.com/birchaudio/birch/pkg/ringbuffer"
	"github.com/birchaudio/birch/pkg/samplesource"
)

// BufferedStream wraps an inner SampleSource with a ring buffer that
// a background producer keeps filled, so the mix thread's Read calls
// never block on decoding. It implements samplesource.SampleSource
// itself, so it can be used anywhere a SampleSource is expected.
//
// Three mutexes separate the concerns the reference implementation
// separates: produceMu serializes Produce calls, seekMu guards the
// pending-seek request and the tell-jump bookkeeping, and readMu guards the ring
// buffer's consumer side against a concurrent produce.
type BufferedStream struct {
	rc    *refcount.Count
	inner samplesource.SampleSource
	fmt   format.Format

	ring *ringbuffer.RingBuffer

	produceMu sync.Mutex

	seekMu    sync.Mutex
	seek      int64 // pending seek target frame, -1 if none
	tell      int64 // frames delivered to callers so far (plus jump corrections)
	tellJumps []tellJump
	innerPos  int64 // inner source's frame position as of the last produce

	readMu sync.Mutex

	end atomic.Bool
}

// New wraps inner in a BufferedStream with a ring buffer sized to hold
// at least bufferFrames frames. New does not check inner for thread
// safety: Produce reads and seeks inner, while Tell queries inner from
// whichever goroutine calls it.
func New(inner samplesource.SampleSource, bufferFrames int) (*BufferedStream, error) {
	frameSize := inner.Format().FrameSize()
	if frameSize <= 0 {
		return nil, gaerr.New(gaerr.MisParam, "inner source has invalid format")
	}

	inner.Acquire()
	pos, _ := inner.Tell()
	return &BufferedStream{
		rc:       refcount.New(),
		inner:    inner,
		fmt:      inner.Format(),
		ring:     ringbuffer.New(uint64(bufferFrames * frameSize)),
		seek:     -1,
		innerPos: pos,
	}, nil
}

func (s *BufferedStream) Format() format.Format { return s.fmt }

func (s *BufferedStream) frameSize() int { return s.fmt.FrameSize() }

// Produce fills as much of the ring buffer as the inner source can
// currently supply. It is meant to be called repeatedly from a
// background goroutine or a StreamManager; each call does a bounded
// amount of work and returns.
func (s *BufferedStream) Produce() error {
	s.produceMu.Lock()
	defer s.produceMu.Unlock()

	s.seekMu.Lock()
	if s.seek >= 0 {
		target := s.seek
		s.seek = -1
		s.readMu.Lock()
		s.ring.Reset()
		s.readMu.Unlock()
		s.tellJumps = nil
		s.tell = target
		s.seekMu.Unlock()

		if err := s.inner.Seek(target); err != nil {
			return err
		}
		s.innerPos = target
	} else {
		s.seekMu.Unlock()
	}

	fs := s.frameSize()
	for {
		free := s.ring.AvailableWrite()
		if free < uint64(fs) {
			return nil
		}

		first, second, ok := s.ring.GetFree(free - free%uint64(fs))
		if !ok || len(first) == 0 {
			return nil
		}

		before := s.innerPos
		n, err := s.inner.Read(first)
		produced := n * fs
		if second != nil && err == nil && n*fs == len(first) {
			n2, err2 := s.inner.Read(second)
			produced += n2 * fs
			n += n2
			if err2 != nil {
				err = err2
			}
		}

		if produced > 0 {
			if prodErr := s.ring.Produce(uint64(produced)); prodErr != nil {
				return prodErr
			}
		}

		after, _ := s.inner.Tell()
		if after != before+int64(n) {
			// the inner source jumped internally (e.g. a loop trigger)
			// mid-read; record the correction to apply once consumption
			// reaches this point in the buffer.
			s.seekMu.Lock()
			bufferedFrames := int64(s.ring.AvailableRead()) / int64(fs)
			s.tellJumps = pushTellJump(s.tellJumps, bufferedFrames, after-(before+int64(n)))
			s.seekMu.Unlock()
		}
		s.innerPos = after

		if n == 0 || s.inner.End() {
			s.end.Store(true)
			return err
		}
	}
}

// Read implements samplesource.SampleSource by draining the ring
// buffer. A short read (fewer frames than requested) that is not
// accompanied by End() true means the background producer hasn't
// caught up yet; callers should retry.
func (s *BufferedStream) Read(dst []byte) (int, error) {
	fs := s.frameSize()

	s.readMu.Lock()
	want := uint64(len(dst) / fs * fs)
	first, second, total := s.ring.GetAvail(want)
	copy(dst, first)
	if second != nil {
		copy(dst[len(first):], second)
	}
	if total > 0 {
		if err := s.ring.Consume(total); err != nil {
			s.readMu.Unlock()
			return 0, err
		}
	}
	s.readMu.Unlock()

	frames := int64(total) / int64(fs)
	if frames > 0 {
		s.seekMu.Lock()
		s.tell += frames
		var delta int64
		s.tellJumps, delta = processTellJumps(s.tellJumps, frames)
		s.tell += delta
		s.seekMu.Unlock()
	}

	return int(frames), nil
}

// End reports whether the inner source is exhausted and every
// buffered frame has been drained.
func (s *BufferedStream) End() bool {
	if !s.end.Load() {
		return false
	}
	return s.ring.AvailableRead() == 0
}

// Ready reports whether the stream can satisfy a read right now,
// matching the reference policy: either the stream has ended, or the
// buffer holds at least one frame and is more than half full (to
// avoid handing out data right as the buffer is about to run dry
// again).
func (s *BufferedStream) Ready() bool {
	if s.End() {
		return true
	}
	avail := s.ring.AvailableRead()
	fs := uint64(s.frameSize())
	return avail >= fs && avail > s.ring.Size()/2
}

func (s *BufferedStream) Seekable() bool { return s.inner.Seekable() }

// Seek requests a seek to the given frame; the actual repositioning
// happens on the next Produce call, not synchronously, so that a
// concurrent background fill never races the inner source's cursor.
func (s *BufferedStream) Seek(frame int64) error {
	if !s.inner.Seekable() {
		return gaerr.New(gaerr.MisUnsup, "inner source is not seekable")
	}
	s.seekMu.Lock()
	s.seek = frame
	s.seekMu.Unlock()
	return nil
}

// Tell reports the frame position as seen by the consumer: the
// pending seek target if a seek hasn't been applied yet, otherwise
// the running tell, which includes the delta of every jump whose
// buffered position has been consumed; jumps still pending in the
// buffer are not applied yet.
func (s *BufferedStream) Tell() (current int64, total int64) {
	_, innerTotal := s.inner.Tell()

	s.seekMu.Lock()
	defer s.seekMu.Unlock()
	if s.seek >= 0 {
		return s.seek, innerTotal
	}
	return s.tell, innerTotal
}

func (s *BufferedStream) Acquire() { s.rc.Acquire() }
func (s *BufferedStream) Release() {
	if s.rc.Release() {
		s.inner.Release()
	}
}
