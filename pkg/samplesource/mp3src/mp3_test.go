package mp3src

import (
	"path/filepath"
	"testing"
)

func TestOpenRejectsMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Fatal("expected an error opening a nonexistent file")
	}
}
