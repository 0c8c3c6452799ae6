package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// stubEncoder stands in for ffmpeg: it writes an output file whose size
// depends on the requested bitrate and records each bitrate it was asked
// to encode at.
func stubEncoder(sizes map[string]int, calls *[]string) runFunc {
	return func(ctx context.Context, name string, args ...string) error {
		var bitrate, output string
		for i := 0; i < len(args)-1; i++ {
			switch args[i] {
			case "-b:a":
				bitrate = args[i+1]
			case "-y":
				output = args[i+1]
			}
		}
		*calls = append(*calls, bitrate)
		return os.WriteFile(output, make([]byte, sizes[bitrate]), 0o644)
	}
}

func TestCompressKeepsFirstFittingBitrate(t *testing.T) {
	var calls []string
	tr := &AudioTranscoder{run: stubEncoder(map[string]int{"192k": 80}, &calls)}
	out := filepath.Join(t.TempDir(), "out.mp3")

	size, kbps, err := tr.Compress(context.Background(), "in.wav", out, 100)
	if err != nil {
		t.Fatal(err)
	}
	if size != 80 || kbps != 192 {
		t.Errorf("got size=%d kbps=%d, want 80 at 192", size, kbps)
	}
	if len(calls) != 1 {
		t.Errorf("encoded %d times, want 1: %v", len(calls), calls)
	}
}

func TestCompressStepsDownBitrate(t *testing.T) {
	var calls []string
	sizes := map[string]int{"192k": 300, "128k": 90, "96k": 50}
	tr := &AudioTranscoder{run: stubEncoder(sizes, &calls)}
	out := filepath.Join(t.TempDir(), "out.mp3")

	size, kbps, err := tr.Compress(context.Background(), "in.wav", out, 100)
	if err != nil {
		t.Fatal(err)
	}
	if kbps != 128 {
		t.Errorf("got %d kbps, want 128 after one step down", kbps)
	}
	if size != 90 || size > 100 {
		t.Errorf("got %d bytes, want 90 and under the cap", size)
	}
	if len(calls) != 2 || calls[0] != "192k" || calls[1] != "128k" {
		t.Errorf("encode order = %v, want [192k 128k]", calls)
	}
	if stat, err := os.Stat(out); err != nil || stat.Size() != 90 {
		t.Errorf("output on disk should be the 128k encode, got stat=%v err=%v", stat, err)
	}
}

func TestCompressFailsWhenLowestBitrateOverCap(t *testing.T) {
	var calls []string
	sizes := map[string]int{"192k": 500, "128k": 400, "96k": 300}
	tr := &AudioTranscoder{run: stubEncoder(sizes, &calls)}
	out := filepath.Join(t.TempDir(), "out.mp3")

	_, _, err := tr.Compress(context.Background(), "in.wav", out, 100)
	if err == nil {
		t.Fatal("expected error when even 96k exceeds the cap")
	}
	if pipeline.Retryable(err) {
		t.Error("over-cap at lowest bitrate should not be retryable")
	}
	if len(calls) != 3 {
		t.Errorf("encoded %d times, want the full ladder: %v", len(calls), calls)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("over-cap output should be removed from disk")
	}
}

func TestCompressEncoderFailureIsRetryable(t *testing.T) {
	tr := &AudioTranscoder{run: func(ctx context.Context, name string, args ...string) error {
		return pipeline.Transient(errors.New("ffmpeg failed: signal: killed"))
	}}
	out := filepath.Join(t.TempDir(), "out.mp3")

	_, _, err := tr.Compress(context.Background(), "in.wav", out, 100)
	if err == nil {
		t.Fatal("expected encoder failure to surface")
	}
	if !pipeline.Retryable(err) {
		t.Error("encoder failure should be retryable")
	}
}
