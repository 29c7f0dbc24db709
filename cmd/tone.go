package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/birchaudio/birch/pkg/device"
	"github.com/birchaudio/birch/pkg/mixer"
	"github.com/birchaudio/birch/pkg/samplesource/tonesrc"
	"github.com/birchaudio/birch/pkg/stream"
)

var toneCmd = &cobra.Command{
	Use:   "tone",
	Short: "Play a synthesized sine-wave test tone",
	Long: `Play a sine wave directly through the output device, with no file or
codec involved. Useful for verifying a device back-end is wired up
correctly before trying a real file.

Examples:
  # Play a 440Hz tone for 3 seconds
  birch tone --freq 440 --duration 3s

  # Play indefinitely at half volume until interrupted
  birch tone --freq 220 --amplitude 0.5 --duration 0`,
	Run: runTone,
}

var (
	toneFreq      float64
	toneAmplitude float64
	toneDuration  time.Duration
	toneRate      int
)

func init() {
	rootCmd.AddCommand(toneCmd)

	toneCmd.Flags().Float64Var(&toneFreq, "freq", 440, "Tone frequency in Hz")
	toneCmd.Flags().Float64Var(&toneAmplitude, "amplitude", 0.25, "Tone amplitude, 0-1")
	toneCmd.Flags().DurationVar(&toneDuration, "duration", 3*time.Second, "How long to play the tone (0 = until interrupted)")
	toneCmd.Flags().IntVar(&toneRate, "samplerate", 44100, "Output sample rate in Hz")
	toneCmd.Flags().IntVarP(&deviceIdx, "device", "d", 1, "Audio output device index")
	toneCmd.Flags().IntVarP(&frames, "frames", "f", 512, "Audio frames per mix window")
}

func runTone(cmd *cobra.Command, args []string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	var totalFrames int64 = -1
	if toneDuration > 0 {
		totalFrames = int64(toneDuration.Seconds() * float64(toneRate))
	}

	src := tonesrc.New(toneRate, toneFreq, toneAmplitude, totalFrames)

	m, err := mixer.New(src.Format(), frames)
	if err != nil {
		slog.Error("failed to create mixer", "error", err)
		os.Exit(1)
	}

	dev := device.NewPortAudio(src.Format(), deviceIdx, frames)
	mgr := device.NewManager(m, stream.NewManager(), dev, device.DefaultManagerConfig())

	if err := mgr.Open(); err != nil {
		slog.Error("failed to open device", "error", err)
		os.Exit(1)
	}

	handle := m.CreateHandle(src, nil)
	handle.SetParamf(mixer.ParamGain, 1)

	finished := make(chan struct{})
	handle.SetFinishCallback(func(*mixer.Handle) {
		close(finished)
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("playing tone", "freq_hz", toneFreq, "amplitude", toneAmplitude, "duration", toneDuration)
	handle.Play()
	mgr.Run()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-finished:
			break loop
		case <-sigChan:
			handle.Stop()
			break loop
		case <-ticker.C:
			mgr.Update()
		}
	}

	handle.Destroy()
	if err := mgr.Close(); err != nil {
		slog.Error("failed to close device", "error", err)
	}
	slog.Info("tone finished")
}
