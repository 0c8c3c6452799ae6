package transcode

import (
	"encoding/json"
	"testing"
)

func TestProbeInfoDuration(t *testing.T) {
	raw := `{
		"format": {"duration": "125.480000"},
		"streams": [
			{"codec_type": "video", "bit_rate": "2500000"},
			{"codec_type": "audio", "bit_rate": "192000", "sample_rate": "48000", "channels": 2}
		]
	}`

	var info probeInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := info.durationSeconds(); got != 125 {
		t.Errorf("durationSeconds() = %d, want 125", got)
	}
}

func TestProbeInfoDurationMissing(t *testing.T) {
	var info probeInfo
	if got := info.durationSeconds(); got != 0 {
		t.Errorf("durationSeconds() = %d, want 0", got)
	}
}

func TestHLSLadderRenditions(t *testing.T) {
	for _, res := range []string{"720", "480"} {
		if _, ok := hlsLadder[res]; !ok {
			t.Errorf("missing %sp rendition", res)
		}
	}
	if len(hlsLadder) != 2 {
		t.Errorf("ladder has %d renditions, want 2", len(hlsLadder))
	}
}

func TestBitrateLadderOrder(t *testing.T) {
	want := []string{"192k", "128k", "96k"}
	if len(bitrateLadder) != len(want) {
		t.Fatalf("ladder = %v, want %v", bitrateLadder, want)
	}
	for i := range want {
		if bitrateLadder[i] != want[i] {
			t.Errorf("ladder[%d] = %q, want %q", i, bitrateLadder[i], want[i])
		}
	}
}
