// Package device provides the presentation-buffer back-end plug-in
// used by Manager to drive a Mixer: PortAudio for real-time output,
// WAVSink for rendering to a file, grounded on the producer/consumer
// stream lifecycle of pkg/audioplayer.Player.
package device

// Device is the four-entry-point back-end contract. Mixer never calls
// these directly; only Manager does, from its mix/queue goroutine.
type Device interface {
	// Open prepares the back-end for playback (creating/starting a
	// stream, opening a file, etc).
	Open() error
	// Check reports how many presentation buffers the back-end is
	// ready to accept right now.
	Check() (freeBuffers int, err error)
	// Queue hands one buffer of already-mixed audio to the back-end.
	// buf is exactly one Mixer.BufferSize() long.
	Queue(buf []byte) error
	// Close tears the back-end down. Safe to call more than once.
	Close() error
}
