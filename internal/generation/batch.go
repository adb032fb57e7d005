package generation

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchItem is one request of a batch.
type BatchItem struct {
	Name    string  `json:"name"`
	Options Options `json:"options"`
}

// BatchResult is the outcome of one batch item. Exactly one of Result and Err is set.
type BatchResult struct {
	Name   string
	Result *ImageResult
	Err    error
}

// Batch generates every item concurrently and waits for all of them. One
// item's failure does not affect the others; results keep the input order.
func (e *Engine) Batch(ctx context.Context, items []BatchItem, outputDir string) []BatchResult {
	results := make([]BatchResult, len(items))

	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			res, err := e.GenerateCompleteImage(ctx, item.Options, outputDir, item.Name)
			results[i] = BatchResult{Name: item.Name, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	e.logger.InfoContext(ctx, "batch generation finished",
		"total", len(items),
		"failed", failed)
	return results
}
