package approval_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vekst/commission-engine/approval"
)

func TestCache_HitAvoidsReload(t *testing.T) {
	// GIVEN: A cached entry for (Oslo, 2024-03)
	// WHEN: Fetching the same key again
	// THEN: The loader does not run a second time

	cache := approval.NewCache()
	ctx := context.Background()
	var calls int32

	load := func(context.Context) ([]approval.MonthlyApproval, error) {
		atomic.AddInt32(&calls, 1)
		return []approval.MonthlyApproval{{ID: "rec-1"}}, nil
	}

	first, err := cache.Get(ctx, "Oslo", march, load)
	require.NoError(t, err)
	second, err := cache.Get(ctx, "Oslo", march, load)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first, second)
}

func TestCache_ConcurrentMisses_SingleLoad(t *testing.T) {
	// GIVEN: An empty cache and a loader that blocks until all callers arrive
	// WHEN: Many goroutines fetch the same key at once
	// THEN: The loader runs exactly once and every caller gets the result

	cache := approval.NewCache()
	ctx := context.Background()

	const callers = 16
	release := make(chan struct{})
	var calls int32

	load := func(context.Context) ([]approval.MonthlyApproval, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []approval.MonthlyApproval{{ID: "rec-1"}}, nil
	}

	var started, wg sync.WaitGroup
	results := make([][]approval.MonthlyApproval, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		started.Add(1)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			results[i], errs[i] = cache.Get(ctx, "Oslo", march, load)
		}(i)
	}

	// Hold the loader until every caller is in flight.
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "concurrent misses must share one load")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i], 1)
		assert.Equal(t, "rec-1", results[i][0].ID)
	}
}

func TestCache_KeysAreIndependent(t *testing.T) {
	cache := approval.NewCache()
	ctx := context.Background()
	var calls int32

	load := func(context.Context) ([]approval.MonthlyApproval, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}

	_, err := cache.Get(ctx, "Oslo", march, load)
	require.NoError(t, err)
	_, err = cache.Get(ctx, "Bergen", march, load)
	require.NoError(t, err)
	_, err = cache.Get(ctx, "Oslo", "2024-04", load)
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCache_InvalidateForcesReload(t *testing.T) {
	// GIVEN: A cached entry
	// WHEN: Invalidating the key and fetching again
	// THEN: The loader runs again

	cache := approval.NewCache()
	ctx := context.Background()
	var calls int32

	load := func(context.Context) ([]approval.MonthlyApproval, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}

	_, err := cache.Get(ctx, "Oslo", march, load)
	require.NoError(t, err)

	cache.Invalidate("Oslo", march)

	_, err = cache.Get(ctx, "Oslo", march, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCache_LoadErrorNotCached(t *testing.T) {
	// GIVEN: A loader that fails once then succeeds
	// WHEN: Fetching twice
	// THEN: The failure is not cached; the second fetch retries

	cache := approval.NewCache()
	ctx := context.Background()
	var calls int32

	load := func(context.Context) ([]approval.MonthlyApproval, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("store unavailable")
		}
		return []approval.MonthlyApproval{{ID: "rec-1"}}, nil
	}

	_, err := cache.Get(ctx, "Oslo", march, load)
	assert.Error(t, err)

	list, err := cache.Get(ctx, "Oslo", march, load)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
