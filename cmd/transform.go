package cmd

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/spf13/cobra"
	wav "github.com/youpy/go-wav"
	soxr "github.com/zaf/resample"

	"github.com/birchaudio/birch/pkg/decoders"
	"github.com/birchaudio/birch/pkg/format"
	"github.com/birchaudio/birch/pkg/samplesource"
)

var transformCmd = &cobra.Command{
	Use:   "transform <input_file>",
	Short: "Transform audio file sample rate and format",
	Long: `Transform audio files to different sample rates and convert to WAV format.
Supports input from MP3, FLAC, Ogg Vorbis, Opus, and WAV, with optional mono
conversion, resampled with SoXR.

Examples:
  # Transform MP3 to 48kHz WAV
  birch transform input.mp3 --new-samplerate 48000 --out output.wav

  # Transform FLAC to 44.1kHz mono WAV
  birch transform input.flac --new-samplerate 44100 --mono --out output.wav

  # Transform WAV with default settings (48kHz)
  birch transform input.wav

Output Format:
  - WAV (16-bit PCM)

Sample Rate Options:
  Common rates: 8000, 16000, 22050, 44100, 48000, 96000, 192000 Hz`,
	Args: cobra.ExactArgs(1),
	Run:  runTransform,
}

func init() {
	rootCmd.AddCommand(transformCmd)

	transformCmd.Flags().Int("new-samplerate", 48000, "Target sample rate in Hz")
	transformCmd.Flags().String("out", "out_transformed.wav", "Output WAV file path")
	transformCmd.Flags().Bool("mono", false, "Convert output to mono signal (average channels)")
}

func runTransform(cmd *cobra.Command, args []string) {
	inFileName := args[0]

	if _, err := os.Stat(inFileName); os.IsNotExist(err) {
		slog.Error("input file not found", "path", inFileName)
		os.Exit(1)
	}

	newSampleRate, err := cmd.Flags().GetInt("new-samplerate")
	if err != nil {
		slog.Error("failed to get new-samplerate flag", "error", err)
		os.Exit(1)
	}

	outFileName, err := cmd.Flags().GetString("out")
	if err != nil {
		slog.Error("failed to get out flag", "error", err)
		os.Exit(1)
	}

	convertToMono, err := cmd.Flags().GetBool("mono")
	if err != nil {
		slog.Error("failed to get mono flag", "error", err)
		os.Exit(1)
	}

	if newSampleRate <= 0 || newSampleRate > 384000 {
		slog.Error("invalid sample rate", "rate", newSampleRate, "valid_range", "1-384000")
		os.Exit(1)
	}

	src, err := decoders.Open(inFileName)
	if err != nil {
		slog.Error("failed to open input file", "error", err)
		os.Exit(1)
	}
	defer src.Release()

	inFmt := src.Format()
	const bitsPerSample = 16

	slog.Info("audio transformation starting",
		"input_file", inFileName,
		"input_sample_rate", inFmt.FrameRate,
		"input_channels", inFmt.Channels,
		"input_format", inFmt.SampleFmt.String(),
		"output_sample_rate", newSampleRate,
		"output_mono", convertToMono,
		"output_file", outFileName)

	slog.Info("decoding audio data")
	audioData, totalSamples, err := decodeAllAudioAsS16(src)
	if err != nil {
		slog.Error("failed to decode audio", "error", err)
		os.Exit(1)
	}

	slog.Info("decoding complete",
		"input_samples", totalSamples,
		"input_bytes", len(audioData))

	slog.Info("resampling audio",
		"from_rate", inFmt.FrameRate,
		"to_rate", newSampleRate)

	resampledData, err := resampleAudio(audioData, inFmt.FrameRate, newSampleRate, inFmt.Channels)
	if err != nil {
		slog.Error("failed to resample audio", "error", err)
		os.Exit(1)
	}

	const bytesPerSample = bitsPerSample / 8
	outSamples := len(resampledData) / (inFmt.Channels * bytesPerSample)

	slog.Info("resampling complete",
		"output_samples", outSamples,
		"output_bytes", len(resampledData))

	outChannels := inFmt.Channels
	outputData := resampledData

	if convertToMono && inFmt.Channels > 1 {
		slog.Info("converting to mono", "input_channels", inFmt.Channels)
		outputData = convertToMono16Bit(resampledData, inFmt.Channels)
		outChannels = 1
		slog.Info("mono conversion complete", "output_channels", 1)
	}

	slog.Info("writing output WAV file", "path", outFileName)
	if err := writeWAVFile(outFileName, outputData, uint32(outSamples), uint16(outChannels), uint32(newSampleRate), bitsPerSample); err != nil {
		slog.Error("failed to write WAV file", "error", err)
		os.Exit(1)
	}

	slog.Info("transformation complete",
		"input_samples", totalSamples,
		"output_samples", outSamples,
		"sample_rate_ratio", fmt.Sprintf("%.3f", float64(newSampleRate)/float64(inFmt.FrameRate)))
}

// decodeAllAudioAsS16 reads every frame src has into memory as
// interleaved 16-bit PCM, converting on the fly if the source produces
// a different sample format (e.g. vorbissrc's float32 output).
func decodeAllAudioAsS16(src samplesource.SampleSource) ([]byte, int, error) {
	const bufferFrames = 4096
	inFmt := src.Format()
	frameSize := inFmt.FrameSize()

	buffer := make([]byte, bufferFrames*frameSize)
	audioData := make([]byte, 0, len(buffer)*10)
	totalFrames := 0

	for {
		n, err := src.Read(buffer)
		if err != nil {
			return nil, 0, fmt.Errorf("decode error: %w", err)
		}
		if n > 0 {
			chunk := buffer[:n*frameSize]
			if inFmt.SampleFmt != format.S16 {
				chunk = toS16(chunk, inFmt.SampleFmt)
			}
			audioData = append(audioData, chunk...)
			totalFrames += n
		}
		if n == 0 || src.End() {
			break
		}
	}

	return audioData, totalFrames, nil
}

// toS16 converts a buffer of samples in srcFmt to interleaved 16-bit
// little-endian PCM.
func toS16(src []byte, srcFmt format.SampleFormat) []byte {
	width := srcFmt.BytesPerSample()
	n := len(src) / width
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		raw := src[i*width : i*width+width]
		var sample int16
		switch srcFmt {
		case format.U8:
			sample = int16((int(raw[0]) - 128) << 8)
		case format.S32:
			v := int32(binary.LittleEndian.Uint32(raw))
			sample = int16(v >> 16)
		case format.F32:
			bits := binary.LittleEndian.Uint32(raw)
			f := math.Float32frombits(bits)
			sample = int16(f * 32767)
		default:
			sample = int16(binary.LittleEndian.Uint16(raw))
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}

// resampleAudio resamples 16-bit PCM audio data using SoXR.
func resampleAudio(audioData []byte, fromRate, toRate, channels int) ([]byte, error) {
	if fromRate == toRate {
		return audioData, nil
	}

	var bufResampled bytes.Buffer
	bufWriter := bufio.NewWriter(&bufResampled)

	resampler, err := soxr.New(
		bufWriter,
		float64(fromRate),
		float64(toRate),
		channels,
		soxr.I16,
		soxr.HighQ,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	if _, err := resampler.Write(audioData); err != nil {
		resampler.Close()
		return nil, fmt.Errorf("failed to resample: %w", err)
	}

	if err := resampler.Close(); err != nil {
		return nil, fmt.Errorf("failed to close resampler: %w", err)
	}

	if err := bufWriter.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush buffer: %w", err)
	}

	return bufResampled.Bytes(), nil
}

// convertToMono16Bit converts interleaved 16-bit multi-channel audio to
// mono by averaging channels.
func convertToMono16Bit(stereoData []byte, channels int) []byte {
	if channels == 1 {
		return stereoData
	}

	monoSize := len(stereoData) / channels
	monoData := make([]byte, monoSize)

	idx := 0
	outIdx := 0

	for idx < len(stereoData) {
		sum := int32(0)
		for ch := 0; ch < channels; ch++ {
			if idx+1 >= len(stereoData) {
				break
			}
			b0 := int16(stereoData[idx])
			b1 := int16(stereoData[idx+1])
			sample := int16((b1 << 8) | b0)
			sum += int32(sample)
			idx += 2
		}

		avgSample := int16(sum / int32(channels))

		if outIdx+1 < len(monoData) {
			monoData[outIdx] = byte(avgSample & 0xFF)
			monoData[outIdx+1] = byte((avgSample >> 8) & 0xFF)
			outIdx += 2
		}
	}

	return monoData
}

// writeWAVFile writes audio data to a WAV file.
func writeWAVFile(fileName string, audioData []byte, numSamples uint32, numChannels uint16, sampleRate uint32, bitsPerSample uint16) error {
	fOut, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer fOut.Close()

	wavWriter := wav.NewWriter(fOut, numSamples, numChannels, sampleRate, bitsPerSample)

	if _, err := wavWriter.Write(audioData); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}

	return nil
}
