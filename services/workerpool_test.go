package services_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Abhishek-J-Sudo/linksentry/services"
)

func TestRunBounded_ProcessesEveryItem(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	var mu sync.Mutex
	seen := map[string]bool{}

	services.RunBounded(context.Background(), 2, items, func(_ context.Context, item string) {
		mu.Lock()
		seen[item] = true
		mu.Unlock()
	})

	assert.Len(t, seen, len(items))
	for _, item := range items {
		assert.True(t, seen[item])
	}
}

func TestRunBounded_NeverExceedsMaxConcurrent(t *testing.T) {
	items := make([]string, 20)
	for i := range items {
		items[i] = "item"
	}

	var current int32
	var maxObserved int32

	services.RunBounded(context.Background(), 3, items, func(_ context.Context, _ string) {
		n := atomic.AddInt32(&current, 1)
		for {
			prev := atomic.LoadInt32(&maxObserved)
			if n <= prev || atomic.CompareAndSwapInt32(&maxObserved, prev, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&current, -1)
	})

	assert.LessOrEqual(t, int(maxObserved), 3)
}

func TestRunBounded_StopsEarlyOnCancellation(t *testing.T) {
	items := make([]string, 50)
	for i := range items {
		items[i] = "item"
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var processed int32
	services.RunBounded(ctx, 2, items, func(_ context.Context, _ string) {
		atomic.AddInt32(&processed, 1)
	})

	assert.Less(t, int(processed), len(items))
}
