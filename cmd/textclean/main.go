// Command textclean re-runs Arabic text normalization over every item with
// stored extracted text. Run it after updating the correction lexicon or
// noise patterns; cleaning is idempotent, so re-running is always safe.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"github.com/joho/godotenv"

	"github.com/tendant/media-pipeline/internal/arabictext"
	"github.com/tendant/media-pipeline/internal/store"
	"github.com/tendant/media-pipeline/internal/workerpool"
)

func main() {
	workers := flag.Int("workers", 4, "concurrent items to clean")
	dryRun := flag.Bool("dry-run", false, "report changes without writing them")
	flag.Parse()

	_ = godotenv.Load()
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	st, err := store.Open(databaseURL)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	ids, err := st.ItemsWithExtractedText(ctx)
	if err != nil {
		log.Fatalf("Failed to list items: %v", err)
	}
	fmt.Printf("Cleaning %d items with %d workers (dry-run=%v)\n", len(ids), *workers, *dryRun)

	cleaner := arabictext.NewCleaner()
	var changed, unchanged atomic.Int64

	err = workerpool.ForEach(ctx, *workers, ids, func(ctx context.Context, id string) error {
		item, err := st.GetItem(ctx, id)
		if err != nil {
			return fmt.Errorf("load %s: %w", id, err)
		}

		result := cleaner.Clean(item.ExtractedText)
		if result.CleanedText == item.ExtractedText && result.SearchText == item.SearchText {
			unchanged.Add(1)
			return nil
		}

		changed.Add(1)
		if *dryRun {
			fmt.Printf("%s: %d -> %d chars, %d noise matches\n",
				id, result.Stats.OriginalLength, result.Stats.CleanedLength, result.Stats.NoiseMatchesRemoved)
			return nil
		}
		if err := st.SetExtractedText(ctx, id, result.CleanedText, result.SearchText); err != nil {
			return fmt.Errorf("update %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Batch clean failed: %v", err)
	}

	fmt.Printf("Done: %d changed, %d unchanged\n", changed.Load(), unchanged.Load())
}
