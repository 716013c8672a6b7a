package services

import (
	"context"
	"sync"
)

// RunBounded runs fn once per item in parallel, never letting more than
// maxConcurrent calls run at once, and blocks until every call returns.
// This is the same bounded-semaphore shape as the teacher's WorkerPool,
// generalized from a fixed content-fetching job type to whatever task the
// Orchestrator's batch loop needs to dispatch (checks, fetches, or
// extraction work) for a single batch of URLs.
func RunBounded(ctx context.Context, maxConcurrent int, items []string, fn func(ctx context.Context, item string)) {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for _, item := range items {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(it string) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(ctx, it)
		}(item)
	}

	wg.Wait()
}
