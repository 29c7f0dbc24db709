package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/birchaudio/birch/pkg/decoders"
	"github.com/birchaudio/birch/pkg/device"
	"github.com/birchaudio/birch/pkg/mixer"
	"github.com/birchaudio/birch/pkg/stream"
)

const version = "1.0.0"

var (
	deviceIdx    int
	bufferFrames int
	frames       int
	showVersion  bool
	verbose      bool
)

// playerCmd represents the player command
var playerCmd = &cobra.Command{
	Use:   "play <audio_file>",
	Short: "Play audio files (MP3, FLAC, Ogg Vorbis, Opus, WAV)",
	Long: `Play an audio file through a PortAudio output device, decoding in a
background goroutine so the mix thread never blocks on the codec.

Examples:
  # Play an MP3 file
  birch play music.mp3

  # Play a FLAC file through a specific device
  birch play -d 0 music.flac

  # Use a larger ring buffer for better stability
  birch play -b 16384 music.mp3

  # Lower latency with a smaller mix window
  birch play -b 2048 -f 256 music.flac

Buffer Recommendations:
  Low latency:    -b 2048  -f 256   (lower CPU usage tolerance)
  Balanced:       -b 8192  -f 512   (default, recommended)
  High stability: -b 16384 -f 1024  (high CPU load scenarios)`,
	Args: cobra.ExactArgs(1),
	Run:  runPlayer,
}

func init() {
	rootCmd.AddCommand(playerCmd)

	playerCmd.Flags().IntVarP(&deviceIdx, "device", "d", 1, "Audio output device index")
	playerCmd.Flags().IntVarP(&bufferFrames, "buffer", "b", 8192, "Ring buffer size in frames")
	playerCmd.Flags().IntVarP(&frames, "frames", "f", 512, "Audio frames per mix window")
	playerCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
	playerCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
}

func runPlayer(cmd *cobra.Command, args []string) {
	if showVersion {
		fmt.Printf("birch play v%s\n", version)
		fmt.Println("Built with:")
		fmt.Println("  - Lock-free SPSC ringbuffer")
		fmt.Println("  - Background-buffered streaming")
		fmt.Println("  - PortAudio for cross-platform audio")
		os.Exit(0)
	}

	fileName := args[0]

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		slog.Error("file not found", "path", fileName)
		os.Exit(1)
	}

	slog.Info("opening audio file", "path", fileName)
	src, err := decoders.Open(fileName)
	if err != nil {
		slog.Error("failed to open file", "error", err)
		os.Exit(1)
	}
	defer src.Release()

	buffered, err := stream.New(src, bufferFrames)
	if err != nil {
		slog.Error("failed to create buffered stream", "error", err)
		os.Exit(1)
	}
	defer buffered.Release()

	fmtOut := buffered.Format()
	slog.Info("audio configuration",
		"device_index", deviceIdx,
		"buffer_frames", bufferFrames,
		"frames_per_buffer", frames,
		"format", fmtOut.String())

	m, err := mixer.New(fmtOut, frames)
	if err != nil {
		slog.Error("failed to create mixer", "error", err)
		os.Exit(1)
	}

	dev := device.NewPortAudio(fmtOut, deviceIdx, frames)
	mgr := device.NewManager(m, stream.NewManager(), dev, device.DefaultManagerConfig())

	slog.Info("opening output device")
	if err := mgr.Open(); err != nil {
		slog.Error("failed to open device", "error", err)
		slog.Error("hint: make sure PortAudio is installed on your system")
		os.Exit(1)
	}

	mgr.AddStream(buffered)

	handle := m.CreateHandle(buffered, nil)
	handle.SetParamf(mixer.ParamGain, 1)
	handle.SetParamf(mixer.ParamPan, 0)

	finished := make(chan struct{})
	handle.SetFinishCallback(func(*mixer.Handle) {
		close(finished)
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("starting playback")
	handle.Play()
	mgr.Run()

	var statusDone chan struct{}
	if verbose {
		statusDone = make(chan struct{})
		go monitorPlayback(handle, statusDone)
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-finished:
			slog.Info("playback completed successfully")
			break loop
		case sig := <-sigChan:
			slog.Info("signal received, stopping playback", "signal", sig)
			handle.Stop()
			break loop
		case <-ticker.C:
			mgr.Update()
		}
	}

	if statusDone != nil {
		close(statusDone)
	}

	handle.Destroy()
	if err := mgr.Close(); err != nil {
		slog.Error("failed to close device", "error", err)
	}

	slog.Info("exiting")
}

// monitorPlayback logs the handle's playback position every two
// seconds until done is closed.
func monitorPlayback(h *mixer.Handle, done chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tell := h.Tell()
			slog.Debug("playback status",
				"current_frame", tell.Current,
				"total_frames", tell.Total)
		case <-done:
			return
		}
	}
}
