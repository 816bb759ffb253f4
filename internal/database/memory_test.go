package database

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecorder_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	rec := NewMemoryRecorder(3)

	for i := range 5 {
		require.NoError(t, rec.Record(ctx, &Run{ID: fmt.Sprintf("run-%d", i)}))
	}

	runs, err := rec.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-4", runs[0].ID)
	assert.Equal(t, "run-3", runs[1].ID)
	assert.Equal(t, "run-2", runs[2].ID)

	runs, err = rec.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-4", runs[0].ID)
}

func TestMemoryRecorder_Empty(t *testing.T) {
	runs, err := NewMemoryRecorder(4).Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestMemoryRecorder_Prune(t *testing.T) {
	ctx := context.Background()
	rec := NewMemoryRecorder(4)
	now := time.Now()

	for i, age := range []time.Duration{5 * time.Hour, 3 * time.Hour, time.Hour, 0} {
		require.NoError(t, rec.Record(ctx, &Run{ID: fmt.Sprintf("run-%d", i), CreatedAt: now.Add(-age)}))
	}

	removed, err := rec.Prune(ctx, now.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	runs, err := rec.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)

	// ring keeps working after a prune
	require.NoError(t, rec.Record(ctx, &Run{ID: "run-4", CreatedAt: now}))
	runs, err = rec.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "run-4", runs[0].ID)
}

func TestMemoryRecorder_Concurrent(t *testing.T) {
	ctx := context.Background()
	rec := NewMemoryRecorder(10)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = rec.Record(ctx, &Run{ID: fmt.Sprintf("run-%d", i)})
			_, _ = rec.Recent(ctx, 5)
		}()
	}
	wg.Wait()

	runs, err := rec.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 10)
}
