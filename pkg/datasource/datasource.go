// Package datasource defines the raw-byte input abstraction that
// sample sources decode from: a seekable-or-not stream of bytes,
// backed by a file, an in-memory buffer, or any io.Reader.
package datasource

// SeekOrigin mirrors io.Seeker's whence values without importing the
// os-specific constants into every implementation.
type SeekOrigin int

const (
	SeekSet SeekOrigin = iota
	SeekCur
	SeekEnd
)

// DataSource is a reference-counted, possibly-seekable byte stream.
// Threadsafe reports whether the implementation may be called from
// more than one goroutine at once.
type DataSource interface {
	// Read reads up to len(p) bytes, returning the number read. It
	// returns io.EOF (possibly with n > 0) once no more data remains.
	Read(p []byte) (n int, err error)

	// Seek repositions the stream. Returns a MisUnsup-coded error if
	// the source is not Seekable.
	Seek(offset int64, origin SeekOrigin) error

	// Tell reports the current byte offset and, if known, the total
	// size in bytes; total is -1 if the size isn't known up front.
	Tell() (current int64, total int64)

	// Eof reports whether the stream has been fully consumed.
	Eof() bool

	Seekable() bool
	Threadsafe() bool

	Acquire()
	Release()
}
