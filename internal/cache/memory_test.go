package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[string]()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))

	got, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "value", got)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[string]()

	require.NoError(t, c.Set(ctx, "key", "value", -time.Second))

	_, err := c.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Expired entries are not returned by GetDelete either
	require.NoError(t, c.Set(ctx, "key2", "value", -time.Second))
	_, err = c.GetDelete(ctx, "key2")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_GetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[string]()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))

	got, err := c.GetDelete(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	_, err = c.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_GetDelete_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[string]()
	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))

	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetDelete(ctx, "key"); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "exactly one consumer may observe the value")
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[string]()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, c.Delete(ctx, "key"))

	_, err := c.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Deleting a missing key is not an error
	assert.NoError(t, c.Delete(ctx, "missing"))
}

func TestMemoryCache_StructValues(t *testing.T) {
	type record struct {
		State    string
		Verifier string
	}

	ctx := context.Background()
	c := NewMemoryCache[record]()

	want := record{State: "abc", Verifier: "xyz"}
	require.NoError(t, c.Set(ctx, "state:abc", want, time.Minute))

	got, err := c.GetDelete(ctx, "state:abc")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMemoryCache_Health(t *testing.T) {
	c := NewMemoryCache[string]()
	assert.NoError(t, c.Health(context.Background()))
	assert.NoError(t, c.Close())
}
