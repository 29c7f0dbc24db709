package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "birch",
	Short: "Realtime PCM mixer and audio playback toolkit",
	Long: `birch - a realtime PCM mixing and playback library built around a
lock-free SPSC ringbuffer, a multi-source mixer with per-handle gain/
pan/pitch control, and pluggable codec and device back-ends.

Features:
  - Lock-free SPSC ringbuffer with zero-copy audio processing
  - Background-buffered streaming over any seekable sample source
  - Multi-handle mixer with gain/pan/pitch ramps and handle groups
  - Support for MP3, FLAC, Ogg Vorbis, Opus, and WAV audio formats
  - PortAudio and WAV-file device back-ends

Commands:
  - play: Play an audio file through the default output device
  - transform: Convert an audio file to a different sample rate/format
  - tone: Play or render a synthesized test tone`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
