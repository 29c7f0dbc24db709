package datasource

import (
	"io"
	"os"
	"testing"

	"github.com/birchaudio/birch/pkg/memory"
)

func TestMemorySourceReadSeekTell(t *testing.T) {
	mem := memory.New(10)
	copy(mem.Bytes(), []byte("0123456789"))
	src := NewMemorySource(mem)
	mem.Release()

	buf := make([]byte, 4)
	n, err := src.Read(buf)
	if err != nil || n != 4 || string(buf) != "0123" {
		t.Fatalf("Read = %d,%v,%q", n, err, buf)
	}

	cur, total := src.Tell()
	if cur != 4 || total != 10 {
		t.Fatalf("Tell() = %d,%d, want 4,10", cur, total)
	}

	if err := src.Seek(-2, SeekEnd); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	n, err = src.Read(buf)
	if n != 2 || string(buf[:2]) != "89" {
		t.Fatalf("Read after seek = %d,%v,%q", n, err, buf[:2])
	}
	if err != io.EOF {
		t.Fatalf("expected io.EOF at end of data, got %v", err)
	}
	if !src.Eof() {
		t.Fatal("Eof() = false, want true")
	}
}

func TestMemorySourceSeekOutOfRange(t *testing.T) {
	mem := memory.New(4)
	src := NewMemorySource(mem)
	mem.Release()

	if err := src.Seek(100, SeekSet); err == nil {
		t.Fatal("expected error seeking past end")
	}
}

func TestFileSourceReadsBackingFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "ds")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	f.WriteString("hello world")
	f.Close()

	src, err := OpenFile(f.Name())
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer src.Release()

	buf := make([]byte, 5)
	n, err := src.Read(buf)
	if err != nil || n != 5 || string(buf) != "hello" {
		t.Fatalf("Read = %d,%v,%q", n, err, buf)
	}
	if !src.Seekable() || !src.Threadsafe() {
		t.Fatal("FileSource should report seekable and threadsafe")
	}
}
