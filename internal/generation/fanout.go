package generation

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// FanOut calls fn for every item with at most limit calls in flight.
//
// Exactly min(limit, len(items)) workers pull items from a shared cursor until
// none remain. A failing or panicking item does not stop the others: its
// result slot keeps the zero value and its error is recorded at the same
// index. Results are positional, independent of completion order.
func FanOut[T, R any](
	ctx context.Context,
	items []T,
	limit int,
	fn func(ctx context.Context, index int, item T) (R, error),
) ([]R, []error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))
	if len(items) == 0 {
		return results, errs
	}

	workers := min(max(limit, 1), len(items))
	var cursor atomic.Int64

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for {
				i := int(cursor.Add(1)) - 1
				if i >= len(items) {
					return nil
				}
				results[i], errs[i] = callItem(ctx, fn, i, items[i])
			}
		})
	}
	_ = g.Wait()

	return results, errs
}

func callItem[T, R any](
	ctx context.Context,
	fn func(ctx context.Context, index int, item T) (R, error),
	index int,
	item T,
) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			result = zero
			err = fmt.Errorf("item %d panicked: %v", index, r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return fn(ctx, index, item)
}
