package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// bitrateLadder is the stepped-downgrade sequence for audio compression.
// Encoding starts at the top; each step down trades quality for size.
var bitrateLadder = []string{"192k", "128k", "96k"}

// AudioMetadata is what ffprobe reports about the original audio file.
type AudioMetadata struct {
	DurationSeconds int
	Bitrate         int
	SampleRate      int
	Channels        int
}

// AudioTranscoder compresses uploaded audio via ffmpeg.
type AudioTranscoder struct {
	run runFunc
}

// NewAudioTranscoder validates that ffmpeg and ffprobe are installed.
func NewAudioTranscoder() (*AudioTranscoder, error) {
	if err := validateDependencies("ffmpeg", "ffprobe"); err != nil {
		return nil, err
	}
	return &AudioTranscoder{run: run}, nil
}

// Compress encodes inputPath to MP3, stepping the bitrate down the ladder
// until the result fits maxSizeBytes. The contract is deterministic: the
// returned file never exceeds the cap; when even the lowest step is too
// large the stage fails.
func (t *AudioTranscoder) Compress(ctx context.Context, inputPath, outputPath string, maxSizeBytes int64) (size int64, bitrateKbps int, err error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return 0, 0, err
	}

	for _, bitrate := range bitrateLadder {
		args := []string{
			"-i", inputPath,
			"-c:a", "libmp3lame",
			"-b:a", bitrate,
			"-ar", "44100",
			"-ac", "2",
			"-y", outputPath,
		}
		if err := t.run(ctx, "ffmpeg", args...); err != nil {
			return 0, 0, err
		}

		info, err := os.Stat(outputPath)
		if err != nil {
			return 0, 0, err
		}
		if info.Size() <= maxSizeBytes {
			kbps, _ := strconv.Atoi(bitrate[:len(bitrate)-1])
			return info.Size(), kbps, nil
		}
	}

	info, statErr := os.Stat(outputPath)
	var got int64
	if statErr == nil {
		got = info.Size()
	}
	os.Remove(outputPath)
	// Not retryable: the source is simply too long for the size cap.
	return 0, 0, fmt.Errorf(
		"compressed file (%.1fMB) exceeds %.1fMB limit at lowest bitrate",
		float64(got)/1024/1024, float64(maxSizeBytes)/1024/1024)
}

// ExtractMetadata reads duration and stream parameters from the original.
// Defaults are returned when no audio stream is found.
func (t *AudioTranscoder) ExtractMetadata(ctx context.Context, inputPath string) AudioMetadata {
	meta := AudioMetadata{Bitrate: 192000, SampleRate: 44100, Channels: 2}

	info, err := probe(ctx, inputPath)
	if err != nil {
		return meta
	}
	meta.DurationSeconds = info.durationSeconds()
	for _, stream := range info.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		if v, err := strconv.Atoi(stream.BitRate); err == nil {
			meta.Bitrate = v
		}
		if v, err := strconv.Atoi(stream.SampleRate); err == nil {
			meta.SampleRate = v
		}
		if stream.Channels > 0 {
			meta.Channels = stream.Channels
		}
		break
	}
	return meta
}
