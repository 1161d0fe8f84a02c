package calc

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of parallel work; its result is handed to the
// aggregation callback
type Task func(ctx context.Context) (interface{}, error)

// Runner applies tasks in parallel over a bounded goroutine pool and
// funnels results through a serialized completion callback. The order
// of completion is not preserved.
type Runner struct {
	Concurrency int
}

// Run executes all tasks; completed is called once per task result
// under a lock, so aggregation code needs no synchronization of its
// own. The first task or aggregation error cancels the rest.
func (r *Runner) Run(ctx context.Context, tasks []Task, completed func(result interface{}) error) error {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	for _, task := range tasks {
		g.Go(func() error {
			result, err := task(ctx)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return completed(result)
		})
	}
	return g.Wait()
}

// SplitInBlocks partitions items into at most n blocks of roughly equal
// total weight, preserving order. Items heavier than the block
// threshold get a block of their own.
func SplitInBlocks[T any](items []T, n int, weight func(T) float64) ([][]T, error) {
	if n <= 0 {
		return nil, fmt.Errorf("number of blocks must be positive, got %d", n)
	}
	if len(items) == 0 {
		return nil, nil
	}

	total := 0.0
	for _, item := range items {
		total += weight(item)
	}
	threshold := total / float64(n)

	var blocks [][]T
	var current []T
	acc := 0.0
	for _, item := range items {
		current = append(current, item)
		acc += weight(item)
		if acc >= threshold && len(blocks) < n-1 {
			blocks = append(blocks, current)
			current = nil
			acc = 0
		}
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks, nil
}
