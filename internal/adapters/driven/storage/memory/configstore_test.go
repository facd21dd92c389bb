package memory

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_Empty(t *testing.T) {
	store := NewConfigStore()

	_, ok := store.Get("remote.base_url")
	assert.False(t, ok)
	assert.Equal(t, "", store.Path())
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
}

func TestNewConfigStoreFrom_CopiesSeed(t *testing.T) {
	seed := map[string]any{"remote.backend": "sheety"}
	store := NewConfigStoreFrom(seed)
	seed["remote.backend"] = "sheets"

	assert.Equal(t, "sheety", store.GetString("remote.backend"))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{
		"s":       "text",
		"i":       7,
		"i64":     int64(8),
		"f":       9.0,
		"b":       true,
		"list":    []string{"a", "b"},
		"anyList": []any{"c", 1, "d"},
	})

	assert.Equal(t, "text", store.GetString("s"))
	assert.Equal(t, "", store.GetString("i"))
	assert.Equal(t, 7, store.GetInt("i"))
	assert.Equal(t, 8, store.GetInt("i64"))
	assert.Equal(t, 9, store.GetInt("f"))
	assert.Equal(t, 0, store.GetInt("s"))
	assert.True(t, store.GetBool("b"))
	assert.False(t, store.GetBool("s"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("list"))
	assert.Equal(t, []string{"c", "d"}, store.GetStringSlice("anyList"))
	assert.Nil(t, store.GetStringSlice("s"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_GetStringSliceReturnsCopy(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{"list": []string{"a"}})

	got := store.GetStringSlice("list")
	got[0] = "changed"

	assert.Equal(t, []string{"a"}, store.GetStringSlice("list"))
}

func TestConfigStore_SetAndFailWrites(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("cache.ttl", "30m"))
	assert.Equal(t, "30m", store.GetString("cache.ttl"))

	store.FailWrites = errors.New("disk full")
	assert.EqualError(t, store.Set("cache.ttl", "1h"), "disk full")
	assert.Equal(t, "30m", store.GetString("cache.ttl"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("counter", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("counter")
		}()
	}
	wg.Wait()

	_, ok := store.Get("counter")
	assert.True(t, ok)
}
