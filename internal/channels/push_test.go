package channels_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channelhub/internal/channels"
	"channelhub/internal/channels/channelstest"
	"channelhub/internal/model"
)

var errBoom = errors.New("boom")

func TestPushBatchSuccess(t *testing.T) {
	items := channelstest.Inventory(250)
	var batches []int
	res := channels.Push(context.Background(), items, channels.PushOptions{BatchSize: 100, Retry: channels.NoRetry},
		func(ctx context.Context, chunk []model.InventoryItem) error {
			batches = append(batches, len(chunk))
			return nil
		},
		func(ctx context.Context, it model.InventoryItem) error {
			t.Fatal("per-item path must not run when every batch succeeds")
			return nil
		})

	assert.True(t, res.Success)
	assert.Equal(t, 250, res.Synced)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []int{100, 100, 50}, batches)
}

func TestPushFallbackIsolatesFailingItem(t *testing.T) {
	items := channelstest.Inventory(30)
	fifteenth := items[14]
	res := channels.Push(context.Background(), items, channels.PushOptions{Retry: channels.NoRetry},
		func(ctx context.Context, chunk []model.InventoryItem) error { return errBoom },
		func(ctx context.Context, it model.InventoryItem) error {
			if it.Date == fifteenth.Date {
				return errBoom
			}
			return nil
		})

	assert.False(t, res.Success)
	assert.True(t, res.Partial())
	assert.Equal(t, 29, res.Synced)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, fifteenth, res.Errors[0].Item)
	assert.Equal(t, "boom", res.Errors[0].Cause)
}

func TestPushOnlyFailedChunkFallsBack(t *testing.T) {
	items := channelstest.Inventory(10)
	var perItem atomic.Int32
	res := channels.Push(context.Background(), items, channels.PushOptions{BatchSize: 4, Retry: channels.NoRetry},
		func(ctx context.Context, chunk []model.InventoryItem) error {
			if chunk[0].Date == items[4].Date {
				return errBoom
			}
			return nil
		},
		func(ctx context.Context, it model.InventoryItem) error {
			perItem.Add(1)
			return nil
		})

	assert.True(t, res.Success)
	assert.Equal(t, 10, res.Synced)
	assert.EqualValues(t, 4, perItem.Load())
}

func TestPushWithoutBatchErrorsKeepInputOrder(t *testing.T) {
	items := channelstest.Inventory(20)
	res := channels.Push(context.Background(), items, channels.PushOptions{Concurrency: 8, Retry: channels.NoRetry}, nil,
		func(ctx context.Context, it model.InventoryItem) error {
			if it.Rate >= 130 {
				return errBoom
			}
			return nil
		})

	assert.Equal(t, 10, res.Synced)
	require.Len(t, res.Errors, 10)
	for i, e := range res.Errors {
		assert.Equal(t, items[10+i], e.Item)
	}
	assert.Error(t, res.Err())
}

func TestPushBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	res := channels.Push(context.Background(), channelstest.Inventory(40), channels.PushOptions{Concurrency: 3, Retry: channels.NoRetry}, nil,
		func(ctx context.Context, it model.InventoryItem) error {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		})

	assert.True(t, res.Success)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestPushCancelledKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	items := channelstest.Inventory(10)
	var calls atomic.Int32
	res := channels.Push(ctx, items, channels.PushOptions{Concurrency: 1, Retry: channels.NoRetry}, nil,
		func(ctx context.Context, it model.InventoryItem) error {
			if calls.Add(1) == 3 {
				cancel()
			}
			return nil
		})

	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Synced)
	require.Len(t, res.Errors, 7)
	assert.ErrorIs(t, res.Errors[0].Err, context.Canceled)
}

func TestPushEmpty(t *testing.T) {
	res := channels.Push[model.InventoryItem](context.Background(), nil, channels.PushOptions{}, nil, nil)
	assert.True(t, res.Success)
	assert.Zero(t, res.Synced)
	assert.NotNil(t, res.Errors)
}

func TestPushRetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	policy := channels.RetryPolicy{MaxAttempts: 3, MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
	res := channels.Push(context.Background(), channelstest.Inventory(1), channels.PushOptions{Retry: policy}, nil,
		func(ctx context.Context, it model.InventoryItem) error {
			if attempts.Add(1) < 3 {
				return &channels.TransportError{Channel: "test", Status: 503}
			}
			return nil
		})

	assert.True(t, res.Success)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestConvertStopsAtFirstFailure(t *testing.T) {
	_, err := channels.Convert([]int{1, 2, 3}, func(i int) (string, error) {
		if i == 2 {
			return "", errBoom
		}
		return "ok", nil
	})
	assert.ErrorIs(t, err, errBoom)

	out, err := channels.Convert([]int{1, 2}, func(i int) (int, error) { return i * 10, nil })
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, out)
}
