// Package replicate copies derived artifacts to S3-compatible object
// storage. Replication is an independent lifecycle: its outcome is written
// to its own status fields and never blocks or fails media processing.
package replicate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tendant/media-pipeline/internal/config"
)

// Replicator uploads local files to one bucket, reporting bytes
// transferred as a 0-100 percentage across the whole artifact set.
type Replicator struct {
	client *minio.Client
	cfg    config.ReplicationConfig
}

// NewReplicator builds the client. It does not touch the network; call
// EnsureBucket before the first upload.
func NewReplicator(cfg config.ReplicationConfig) (*Replicator, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return &Replicator{client: client, cfg: cfg}, nil
}

// EnsureBucket creates the target bucket if it doesn't exist.
func (r *Replicator) EnsureBucket(ctx context.Context) error {
	exists, err := r.client.BucketExists(ctx, r.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := r.client.MakeBucket(ctx, r.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// ReplicateAll uploads every file named by relPaths, relative to mediaRoot.
// A path ending in .m3u8 is expanded to its whole directory so the playlist
// travels with its segments. Object names mirror the relative layout.
// progress, when non-nil, receives the percentage of bytes transferred
// across the whole set as uploads advance.
//
// Returns the public URL for each uploaded object keyed by its relative
// path. The first failed upload aborts the set.
func (r *Replicator) ReplicateAll(ctx context.Context, mediaRoot string, relPaths []string, progress func(pct int)) (map[string]string, error) {
	files, err := expand(mediaRoot, relPaths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return map[string]string{}, nil
	}

	sizes := make(map[string]int64, len(files))
	var total int64
	for _, rel := range files {
		stat, err := os.Stat(filepath.Join(mediaRoot, rel))
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
		}
		sizes[rel] = stat.Size()
		total += stat.Size()
	}
	prog := &byteProgress{total: total, report: progress}

	urls := make(map[string]string, len(files))
	for _, rel := range files {
		object := filepath.ToSlash(rel)
		local, err := os.Open(filepath.Join(mediaRoot, rel))
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", rel, err)
		}
		_, err = r.client.PutObject(ctx, r.cfg.Bucket, object,
			&progressReader{r: local, prog: prog}, sizes[rel],
			minio.PutObjectOptions{ContentType: contentTypeFor(rel)})
		local.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", object, err)
		}
		urls[filepath.ToSlash(rel)] = r.PublicURL(object)
	}
	return urls, nil
}

// byteProgress accumulates bytes transferred across the artifact set and
// reports the percentage each time it advances. Reports are monotonic and
// capped at 100 even if a file grows mid-upload.
type byteProgress struct {
	total   int64
	done    int64
	lastPct int
	report  func(pct int)
}

func (p *byteProgress) add(n int64) {
	if p.report == nil || p.total <= 0 {
		return
	}
	p.done += n
	pct := int(p.done * 100 / p.total)
	if pct > 100 {
		pct = 100
	}
	if pct > p.lastPct {
		p.lastPct = pct
		p.report(pct)
	}
}

// progressReader counts bytes as minio reads them from the local file.
type progressReader struct {
	r    io.Reader
	prog *byteProgress
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	if n > 0 {
		pr.prog.add(int64(n))
	}
	return n, err
}

// PublicURL returns the address clients use to fetch an object. A
// configured public base URL (CDN or reverse proxy) takes precedence over
// the raw endpoint.
func (r *Replicator) PublicURL(object string) string {
	if r.cfg.PublicBaseURL != "" {
		return strings.TrimRight(r.cfg.PublicBaseURL, "/") + "/" + object
	}
	scheme := "http"
	if r.cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, r.cfg.Endpoint, r.cfg.Bucket, object)
}

// expand resolves playlist paths to their directory contents and drops
// paths that no longer exist locally. Output is sorted for stable progress
// reporting.
func expand(mediaRoot string, relPaths []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	add := func(rel string) {
		rel = filepath.Clean(rel)
		if !seen[rel] {
			seen[rel] = true
			files = append(files, rel)
		}
	}

	for _, rel := range relPaths {
		if rel == "" {
			continue
		}
		if strings.HasSuffix(rel, ".m3u8") {
			dir := filepath.Join(mediaRoot, filepath.Dir(rel))
			entries, err := os.ReadDir(dir)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, fmt.Errorf("failed to read rendition dir: %w", err)
			}
			for _, entry := range entries {
				if !entry.IsDir() {
					add(filepath.Join(filepath.Dir(rel), entry.Name()))
				}
			}
			continue
		}
		if _, err := os.Stat(filepath.Join(mediaRoot, rel)); err == nil {
			add(rel)
		}
	}
	sort.Strings(files)
	return files, nil
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
