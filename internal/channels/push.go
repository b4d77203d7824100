package channels

import (
	"context"

	"golang.org/x/sync/errgroup"

	"channelhub/internal/model"
)

const defaultConcurrency = 4

// PushOptions shape one Push run.
type PushOptions struct {
	// BatchSize splits the snapshot into chunks; <= 0 sends everything in one batch.
	BatchSize int
	// Concurrency bounds in-flight per-item calls during fallback.
	Concurrency int
	Retry       RetryPolicy
}

// BatchFunc pushes many items in one partner call.
type BatchFunc[T any] func(ctx context.Context, items []T) error

// ItemFunc pushes a single item.
type ItemFunc[T any] func(ctx context.Context, item T) error

// Push sends items to a partner batch-first. Each chunk goes out through batch; a chunk whose batch call
// fails is pushed again item by item, because partners only report aggregate failure and there is no way
// to tell which members were applied. Items are idempotent by (room type, date), so re-sending applied ones
// is harmless. A nil batch means the partner has no bulk endpoint.
//
// One item's failure never stops the others. When ctx is cancelled, items not yet attempted are reported
// with the context error and everything already synced is still counted. Errors come back in input order.
func Push[T any](ctx context.Context, items []T, opts PushOptions, batch BatchFunc[T], one ItemFunc[T]) model.SyncResult {
	if len(items) == 0 {
		return model.NewSyncResult(0, nil)
	}
	size := opts.BatchSize
	if size <= 0 || size > len(items) {
		size = len(items)
	}

	synced := 0
	var fallback []int
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		if batch != nil && ctx.Err() == nil {
			chunk := items[start:end]
			err := opts.Retry.Do(ctx, func(ctx context.Context) error { return batch(ctx, chunk) })
			if err == nil {
				synced += len(chunk)
				continue
			}
		}
		for i := start; i < end; i++ {
			fallback = append(fallback, i)
		}
	}

	n, errs := pushEach(ctx, items, fallback, opts, one)
	return model.NewSyncResult(synced+n, errs)
}

func pushEach[T any](ctx context.Context, items []T, idx []int, opts PushOptions, one ItemFunc[T]) (int, []model.SyncError) {
	if len(idx) == 0 {
		return 0, nil
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = defaultConcurrency
	}

	results := make([]error, len(idx))
	var g errgroup.Group
	g.SetLimit(workers)
	for k, i := range idx {
		if err := ctx.Err(); err != nil {
			results[k] = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[k] = err
				return nil
			}
			results[k] = opts.Retry.Do(ctx, func(ctx context.Context) error { return one(ctx, items[i]) })
			return nil
		})
	}
	_ = g.Wait()

	synced := 0
	var errs []model.SyncError
	for k, err := range results {
		if err == nil {
			synced++
			continue
		}
		errs = append(errs, model.SyncError{Item: items[idx[k]], Cause: err.Error(), Err: err})
	}
	return synced, errs
}

// Convert maps every item to its wire shape, stopping at the first failure. Batch funcs use it so that one
// unmappable item sends the chunk to per-item fallback, where only that item fails.
func Convert[T, W any](items []T, fn func(T) (W, error)) ([]W, error) {
	out := make([]W, 0, len(items))
	for _, it := range items {
		w, err := fn(it)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}
