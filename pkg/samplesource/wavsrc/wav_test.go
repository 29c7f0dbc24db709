package wavsrc

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// writeTestWAV hand-assembles a minimal PCM WAV file: RIFF/WAVE, a
// canonical 16-byte fmt chunk, then a data chunk of frames mono S16
// samples counting up from 0.
func writeTestWAV(t *testing.T, frames int) string {
	t.Helper()
	const sampleRate = 8000
	const channels = 1
	const bitsPerSample = 16
	const blockAlign = channels * bitsPerSample / 8

	dataSize := frames * blockAlign
	buf := make([]byte, 0, 44+dataSize)

	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, channels)
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate*blockAlign)
	buf = binary.LittleEndian.AppendUint16(buf, blockAlign)
	buf = binary.LittleEndian.AppendUint16(buf, bitsPerSample)

	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	for i := 0; i < frames; i++ {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(i)))
	}

	path := filepath.Join(t.TempDir(), "test.wav")
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestSourceReadsAllFramesThenEnds(t *testing.T) {
	const frames = 100
	path := writeTestWAV(t, frames)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Release()

	fmtOut := src.Format()
	if fmtOut.Channels != 1 || fmtOut.FrameRate != 8000 {
		t.Fatalf("Format = %+v, want mono 8000Hz", fmtOut)
	}

	total := 0
	buf := make([]byte, 30*fmtOut.FrameSize())
	for !src.End() {
		n, err := src.Read(buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if n == 0 {
			break
		}
		total += n
	}
	if total != frames {
		t.Fatalf("total frames read = %d, want %d", total, frames)
	}
	if !src.End() {
		t.Fatal("End() = false after exhausting the file")
	}

	cur, _ := src.Tell()
	if cur != int64(frames) {
		t.Fatalf("Tell() current = %d, want %d", cur, frames)
	}
}

func TestSourceNotSeekable(t *testing.T) {
	path := writeTestWAV(t, 10)
	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Release()

	if src.Seekable() {
		t.Fatal("Seekable() = true, want false")
	}
	if err := src.Seek(0); err == nil {
		t.Fatal("Seek should fail on a non-seekable source")
	}
}

func TestOpenRejectsMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatal("expected an error opening a nonexistent file")
	}
}
