// Package decoders picks a codec-specific SampleSource by file
// extension, the same dispatch pkg/decoders.NewDecoder did for the
// old per-format types.AudioDecoder implementations.
package decoders

import (
	"path/filepath"
	"strings"

	"github.com/birchaudio/birch/pkg/gaerr"
	"github.com/birchaudio/birch/pkg/samplesource"
	"github.com/birchaudio/birch/pkg/samplesource/flacsrc"
	"github.com/birchaudio/birch/pkg/samplesource/mp3src"
	"github.com/birchaudio/birch/pkg/samplesource/opussrc"
	"github.com/birchaudio/birch/pkg/samplesource/vorbissrc"
	"github.com/birchaudio/birch/pkg/samplesource/wavsrc"
)

// Open opens fileName with the SampleSource implementation matching
// its extension. Supported: .mp3, .flac/.fla, .wav, .ogg, .opus.
func Open(fileName string) (samplesource.SampleSource, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".mp3":
		return mp3src.Open(fileName)
	case ".flac", ".fla":
		return flacsrc.Open(fileName)
	case ".wav":
		return wavsrc.Open(fileName)
	case ".ogg":
		return vorbissrc.Open(fileName)
	case ".opus":
		return opussrc.Open(fileName)
	default:
		return nil, gaerr.New(gaerr.MisUnsup, "decoders: unsupported file extension %q", filepath.Ext(fileName))
	}
}
