package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SergeiKhy/shortener/internal/models"
	"github.com/SergeiKhy/shortener/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) repository.LinkStore {
		return repository.NewMemoryStore()
	})
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Put(ctx, &models.Link{ShortCode: "abc"})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, context.Canceled)

	assert.ErrorIs(t, store.Ping(ctx), context.Canceled)
}

// Readers iterating a copy never see a half-written click while appends continue.
func TestMemoryStore_ReadersDuringAppends(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, store.Put(ctx, &models.Link{
		ShortCode: "busy1",
		LongURL:   "https://example.com",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = store.AppendClick(ctx, "busy1", models.Click{
				ID:        "id",
				Timestamp: now,
				Source:    models.SourceDirect,
				Location:  "Local",
			})
		}
		close(done)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		last := 0
		for {
			select {
			case <-done:
				return
			default:
			}
			link, err := store.Get(ctx, "busy1")
			if !assert.NoError(t, err) {
				return
			}
			assert.GreaterOrEqual(t, len(link.Clicks), last)
			for _, c := range link.Clicks {
				assert.Equal(t, "Local", c.Location)
			}
			last = len(link.Clicks)
		}
	}()

	wg.Wait()

	link, err := store.Get(ctx, "busy1")
	require.NoError(t, err)
	assert.Len(t, link.Clicks, 500)
}
