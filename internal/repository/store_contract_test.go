package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SergeiKhy/shortener/internal/models"
	"github.com/SergeiKhy/shortener/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract checks the LinkStore behaviour shared by every backend.
// newStore must return an empty store for each call.
func runStoreContract(t *testing.T, newStore func(t *testing.T) repository.LinkStore) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	newLink := func(code string, offset time.Duration) *models.Link {
		created := base.Add(offset)
		return &models.Link{
			ShortCode: code,
			LongURL:   "https://example.com/" + code,
			CreatedAt: created,
			ExpiresAt: created.Add(30 * time.Minute),
		}
	}

	newClick := func(i int) models.Click {
		return models.Click{
			ID:        uuid.NewString(),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Source:    models.SourceDirect,
			Location:  fmt.Sprintf("loc-%d", i),
		}
	}

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(context.Background()))
	})

	t.Run("put then get round-trips", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		link := newLink("abc123", 0)

		require.NoError(t, store.Put(ctx, link))

		got, err := store.Get(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, link.ShortCode, got.ShortCode)
		assert.Equal(t, link.LongURL, got.LongURL)
		assert.True(t, link.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, link.ExpiresAt.Equal(got.ExpiresAt))
		assert.Empty(t, got.Clicks)
	})

	t.Run("duplicate put fails", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Put(ctx, newLink("abc", 0)))
		err := store.Put(ctx, newLink("abc", time.Second))

		assert.ErrorIs(t, err, repository.ErrCodeExists)
		got, err := store.Get(ctx, "abc")
		require.NoError(t, err)
		assert.True(t, base.Equal(got.CreatedAt), "first write must win")
	})

	t.Run("get unknown code", func(t *testing.T) {
		store := newStore(t)

		got, err := store.Get(context.Background(), "nope")

		assert.ErrorIs(t, err, repository.ErrLinkNotFound)
		assert.Nil(t, got)
	})

	t.Run("append to unknown code", func(t *testing.T) {
		store := newStore(t)

		err := store.AppendClick(context.Background(), "nope", newClick(0))

		assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	})

	t.Run("exists", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.Put(ctx, newLink("here1", 0)))

		ok, err := store.Exists(ctx, "here1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Exists(ctx, "gone1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("clicks keep call order", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.Put(ctx, newLink("order1", 0)))

		const n = 20
		want := make([]models.Click, n)
		for i := 0; i < n; i++ {
			want[i] = newClick(i)
			require.NoError(t, store.AppendClick(ctx, "order1", want[i]))
		}

		links, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, links, 1)
		require.Len(t, links[0].Clicks, n)
		for i, c := range links[0].Clicks {
			assert.Equal(t, want[i].ID, c.ID)
			assert.Equal(t, want[i].Location, c.Location)
			assert.True(t, want[i].Timestamp.Equal(c.Timestamp))
		}
	})

	t.Run("list follows creation order", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		codes := []string{"zzz", "aaa", "mmm", "bbb"}
		for i, code := range codes {
			require.NoError(t, store.Put(ctx, newLink(code, time.Duration(i)*time.Second)))
		}

		links, err := store.List(ctx)
		require.NoError(t, err)
		got := make([]string, 0, len(links))
		for _, l := range links {
			got = append(got, l.ShortCode)
		}
		assert.Equal(t, codes, got)
	})

	t.Run("returned links are copies", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.Put(ctx, newLink("copy1", 0)))
		require.NoError(t, store.AppendClick(ctx, "copy1", newClick(0)))

		got, err := store.Get(ctx, "copy1")
		require.NoError(t, err)
		got.LongURL = "https://changed.example.com"
		got.Clicks[0].Source = "changed"

		again, err := store.Get(ctx, "copy1")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/copy1", again.LongURL)
		assert.Equal(t, models.SourceDirect, again.Clicks[0].Source)
	})

	t.Run("concurrent puts on one code admit one writer", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		const writers = 16
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			success int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := store.Put(ctx, newLink("race1", time.Duration(i)*time.Second))
				if err == nil {
					mu.Lock()
					success++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, repository.ErrCodeExists)
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, success)
	})

	t.Run("concurrent appends are all kept", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		codes := []string{"con1", "con2", "con3"}
		for i, code := range codes {
			require.NoError(t, store.Put(ctx, newLink(code, time.Duration(i)*time.Second)))
		}

		const perCode = 25
		var wg sync.WaitGroup
		for _, code := range codes {
			for i := 0; i < perCode; i++ {
				wg.Add(1)
				go func(code string, i int) {
					defer wg.Done()
					assert.NoError(t, store.AppendClick(ctx, code, newClick(i)))
				}(code, i)
			}
		}
		wg.Wait()

		for _, code := range codes {
			got, err := store.Get(ctx, code)
			require.NoError(t, err)
			assert.Len(t, got.Clicks, perCode, code)

			ids := make(map[string]bool)
			for _, c := range got.Clicks {
				ids[c.ID] = true
			}
			assert.Len(t, ids, perCode, "no click may be lost or duplicated")
		}
	})
}
