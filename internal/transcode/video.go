package transcode

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// VideoTranscoder produces segmented HLS renditions from an uploaded video
// by invoking ffmpeg as a subprocess.
type VideoTranscoder struct{}

// NewVideoTranscoder validates that ffmpeg and ffprobe are installed.
func NewVideoTranscoder() (*VideoTranscoder, error) {
	if err := validateDependencies("ffmpeg", "ffprobe"); err != nil {
		return nil, err
	}
	return &VideoTranscoder{}, nil
}

// hlsLadder maps a rendition label to its scale filter and rate control.
var hlsLadder = map[string]struct {
	scale   string
	bitrate string
	maxrate string
	bufsize string
}{
	"720": {"scale='min(1280,iw)':-2", "2000k", "2200k", "4000k"},
	"480": {"scale='min(854,iw)':-2", "1000k", "1100k", "2000k"},
}

// GenerateHLS encodes one rendition into outputDir and returns the playlist
// path. The playlist references sequential .ts segments in the same
// directory.
func (t *VideoTranscoder) GenerateHLS(ctx context.Context, inputPath, outputDir, resolution string) (string, error) {
	params, ok := hlsLadder[resolution]
	if !ok {
		return "", fmt.Errorf("unsupported resolution: %s", resolution)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	playlistPath := filepath.Join(outputDir, "playlist.m3u8")
	segmentPattern := filepath.Join(outputDir, "segment_%03d.ts")

	args := []string{
		"-i", inputPath,
		"-vf", params.scale,
		"-c:v", "libx264", "-preset", "veryfast",
		"-b:v", params.bitrate, "-maxrate", params.maxrate, "-bufsize", params.bufsize,
		"-g", "48", "-sc_threshold", "0",
		"-c:a", "aac", "-b:a", "128k", "-ac", "2", "-ar", "44100",
		"-hls_time", "6",
		"-hls_list_size", "0",
		"-hls_segment_filename", segmentPattern,
		"-hls_playlist_type", "vod",
		"-y", playlistPath,
	}

	if err := run(ctx, "ffmpeg", args...); err != nil {
		return "", err
	}
	return playlistPath, nil
}

// Duration returns the media duration in whole seconds, 0 when ffprobe
// cannot determine it.
func (t *VideoTranscoder) Duration(ctx context.Context, inputPath string) int {
	info, err := probe(ctx, inputPath)
	if err != nil {
		return 0
	}
	return info.durationSeconds()
}

type probeInfo struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		BitRate    string `json:"bit_rate"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

func (p *probeInfo) durationSeconds() int {
	d, err := strconv.ParseFloat(p.Format.Duration, 64)
	if err != nil {
		return 0
	}
	return int(d)
}

func probe(ctx context.Context, inputPath string) (*probeInfo, error) {
	out, err := runOutput(ctx, "ffprobe",
		"-v", "quiet", "-print_format", "json",
		"-show_format", "-show_streams", inputPath)
	if err != nil {
		return nil, err
	}
	var info probeInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	return &info, nil
}
