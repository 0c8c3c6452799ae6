package workerpool

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
)

func TestForEachVisitsAll(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var sum atomic.Int64

	err := ForEach(context.Background(), 3, items, func(ctx context.Context, n int) error {
		sum.Add(int64(n))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach() error = %v", err)
	}
	if sum.Load() != 15 {
		t.Errorf("sum = %d, want 15", sum.Load())
	}
}

func TestForEachStopsOnError(t *testing.T) {
	items := make([]int, 100)
	boom := errors.New("boom")
	var calls atomic.Int64

	err := ForEach(context.Background(), 1, items, func(ctx context.Context, n int) error {
		if calls.Add(1) == 1 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("ForEach() error = %v, want boom", err)
	}
	if calls.Load() == 100 {
		t.Error("error did not cancel remaining work")
	}
}

func TestMapPreservesOrder(t *testing.T) {
	items := []int{3, 1, 2}
	results, errs := Map(context.Background(), 2, items, func(ctx context.Context, n int) (string, error) {
		if n == 1 {
			return "", errors.New("bad")
		}
		return strconv.Itoa(n * 10), nil
	})

	if results[0] != "30" || results[2] != "20" {
		t.Errorf("results = %v, want [30  20]", results)
	}
	if errs[0] != nil || errs[2] != nil {
		t.Errorf("unexpected errors: %v", errs)
	}
	if errs[1] == nil {
		t.Error("expected error for item 1")
	}
}

func TestMapErrorDoesNotCancelBatch(t *testing.T) {
	items := []int{0, 1, 2, 3}
	var calls atomic.Int64
	_, errs := Map(context.Background(), 1, items, func(ctx context.Context, n int) (int, error) {
		calls.Add(1)
		return 0, errors.New("each fails")
	})
	if calls.Load() != 4 {
		t.Errorf("calls = %d, want 4", calls.Load())
	}
	for i, err := range errs {
		if err == nil {
			t.Errorf("errs[%d] = nil, want error", i)
		}
	}
}

func TestZeroWorkersClamped(t *testing.T) {
	err := ForEach(context.Background(), 0, []int{1}, func(ctx context.Context, n int) error {
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach() error = %v", err)
	}
}
