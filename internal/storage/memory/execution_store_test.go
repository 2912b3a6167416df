package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tx-forecast-lab/internal/domain"
	"tx-forecast-lab/internal/storage"
)

func TestExecutionStore_InsertAndRecent(t *testing.T) {
	ctx := context.Background()
	store := NewExecutionStore(0)

	for i := 0; i < 3; i++ {
		err := store.Insert(ctx, &domain.ExecutionRecord{
			TxHash:    fmt.Sprintf("0x%d", i),
			To:        "0xpool",
			Timestamp: int64(1000 + i),
		})
		require.NoError(t, err)
	}

	recent, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "0x2", recent[0].TxHash)
	assert.Equal(t, "0x0", recent[2].TxHash)

	recent, err = store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestExecutionStore_InvalidInput(t *testing.T) {
	ctx := context.Background()
	store := NewExecutionStore(0)

	err := store.Insert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Insert(ctx, &domain.ExecutionRecord{TxHash: "0x1"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestExecutionStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewExecutionStore(5)

	for i := 0; i < 8; i++ {
		err := store.Insert(ctx, &domain.ExecutionRecord{
			TxHash:    fmt.Sprintf("0x%d", i),
			To:        "0xpool",
			Timestamp: int64(i),
		})
		require.NoError(t, err)
	}

	recent, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, "0x7", recent[0].TxHash)
	assert.Equal(t, "0x3", recent[4].TxHash)
}

func TestExecutionStore_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewExecutionStore(0)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Insert(ctx, &domain.ExecutionRecord{
			TxHash:    fmt.Sprintf("0x%d", i),
			To:        "0xpool",
			Timestamp: 500,
		}))
	}

	recent, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	// Equal timestamps come back latest-inserted first.
	assert.Equal(t, "0x2", recent[0].TxHash)
	assert.Equal(t, "0x0", recent[2].TxHash)
}

func TestExecutionStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewExecutionStore(0)

	require.NoError(t, store.Insert(ctx, &domain.ExecutionRecord{To: "0xa"}))
	require.NoError(t, store.Clear(ctx))

	recent, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestExecutionStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewExecutionStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Insert(ctx, &domain.ExecutionRecord{
				TxHash:    fmt.Sprintf("0x%d", i),
				To:        "0xpool",
				Timestamp: int64(i),
			})
			_, _ = store.Recent(ctx, 5)
		}(i)
	}
	wg.Wait()

	recent, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 10)
}
