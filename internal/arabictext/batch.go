package arabictext

import (
	"context"

	"github.com/tendant/media-pipeline/internal/workerpool"
)

// BatchResult pairs one input's cleaning outcome with its slice position.
type BatchResult struct {
	Index  int
	Result Result
}

// CleanBatch cleans texts concurrently with at most workers goroutines.
// Output order matches input order. A Cleaner is immutable after
// construction so the batch shares one instance.
func (c *Cleaner) CleanBatch(ctx context.Context, workers int, texts []string) []BatchResult {
	indexes := make([]int, len(texts))
	for i := range texts {
		indexes[i] = i
	}
	results, _ := workerpool.Map(ctx, workers, indexes, func(_ context.Context, i int) (Result, error) {
		return c.Clean(texts[i]), nil
	})
	out := make([]BatchResult, len(texts))
	for i, r := range results {
		out[i] = BatchResult{Index: i, Result: r}
	}
	return out
}
