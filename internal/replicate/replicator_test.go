package replicate

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/media-pipeline/internal/config"
)

func TestExpandPlaylistToDirectory(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "hls", "item1", "720")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"playlist.m3u8", "segment_000.ts", "segment_001.ts"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := expand(root, []string{filepath.Join("hls", "item1", "720", "playlist.m3u8")})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3: %v", len(files), files)
	}
}

func TestExpandSkipsMissing(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "real.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := expand(root, []string{"real.mp3", "gone.mp3", "", "missing/playlist.m3u8"})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != "real.mp3" {
		t.Fatalf("got %v, want [real.mp3]", files)
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.ReplicationConfig
		object string
		want   string
	}{
		{
			name:   "endpoint with ssl",
			cfg:    config.ReplicationConfig{Endpoint: "s3.example.com", Bucket: "media", UseSSL: true},
			object: "audio/a.mp3",
			want:   "https://s3.example.com/media/audio/a.mp3",
		},
		{
			name:   "plain endpoint",
			cfg:    config.ReplicationConfig{Endpoint: "localhost:9000", Bucket: "media"},
			object: "a.pdf",
			want:   "http://localhost:9000/media/a.pdf",
		},
		{
			name:   "public base url wins",
			cfg:    config.ReplicationConfig{Endpoint: "s3.example.com", Bucket: "media", PublicBaseURL: "https://cdn.example.com/"},
			object: "a.pdf",
			want:   "https://cdn.example.com/a.pdf",
		},
	}
	for _, tt := range tests {
		r := &Replicator{cfg: tt.cfg}
		if got := r.PublicURL(tt.object); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestByteProgressReportsIntermediatePercentages(t *testing.T) {
	var reports []int
	prog := &byteProgress{total: 100, report: func(pct int) { reports = append(reports, pct) }}

	// A single 100-byte upload read in four chunks must report between 0
	// and 100, not jump straight to completion.
	pr := &progressReader{r: bytes.NewReader(make([]byte, 100)), prog: prog}
	buf := make([]byte, 25)
	for {
		if _, err := pr.Read(buf); err == io.EOF {
			break
		}
	}

	want := []int{25, 50, 75, 100}
	if len(reports) != len(want) {
		t.Fatalf("reports = %v, want %v", reports, want)
	}
	for i := range want {
		if reports[i] != want[i] {
			t.Errorf("report[%d] = %d, want %d", i, reports[i], want[i])
		}
	}
}

func TestByteProgressSpansMultipleFiles(t *testing.T) {
	var reports []int
	prog := &byteProgress{total: 200, report: func(pct int) { reports = append(reports, pct) }}

	prog.add(50)
	prog.add(50) // first file done
	prog.add(100)

	want := []int{25, 50, 100}
	if len(reports) != len(want) {
		t.Fatalf("reports = %v, want %v", reports, want)
	}
	for i := range want {
		if reports[i] != want[i] {
			t.Errorf("report[%d] = %d, want %d", i, reports[i], want[i])
		}
	}
}

func TestByteProgressClampedAndNilSafe(t *testing.T) {
	var last int
	prog := &byteProgress{total: 10, report: func(pct int) { last = pct }}
	prog.add(10)
	prog.add(5)
	if last != 100 {
		t.Errorf("overflow should clamp at 100, got %d", last)
	}

	none := &byteProgress{total: 10}
	none.add(5) // no callback, must not panic

	zero := &byteProgress{report: func(int) { t.Error("zero total must not report") }}
	zero.add(5)
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct{ path, want string }{
		{"a/playlist.m3u8", "application/vnd.apple.mpegurl"},
		{"a/segment_000.ts", "video/mp2t"},
		{"a.mp3", "audio/mpeg"},
		{"a.PDF", "application/pdf"},
		{"a.bin", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := contentTypeFor(tt.path); got != tt.want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
