package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".r3form", "config.toml"), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("remote.base_url", "https://api.sheety.co/abc/chata"))
	require.NoError(t, store.Set("cache.min_case_rows", int64(3)))
	require.NoError(t, store.Set("form.enabled", true))
	require.NoError(t, store.Set("form.asc_options", []string{"Yes", "No"}))

	assert.Equal(t, "https://api.sheety.co/abc/chata", store.GetString("remote.base_url"))
	assert.Equal(t, 3, store.GetInt("cache.min_case_rows"))
	assert.True(t, store.GetBool("form.enabled"))
	assert.Equal(t, []string{"Yes", "No"}, store.GetStringSlice("form.asc_options"))

	// Wrong types and missing keys fall back to zero values.
	assert.Equal(t, "", store.GetString("cache.min_case_rows"))
	assert.Equal(t, 0, store.GetInt("remote.base_url"))
	assert.False(t, store.GetBool("remote.base_url"))
	assert.Nil(t, store.GetStringSlice("missing"))
	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_SaveWritesNestedTables(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("remote.backend", "sheety"))
	require.NoError(t, store.Set("schema.submission.asc", []string{"ascStatus", "asc"}))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "[remote]")
	assert.Contains(t, text, "[schema.submission]")
	assert.False(t, strings.Contains(text, `"remote.backend"`), "keys should not be written quoted:\n%s", text)
}

func TestConfigStore_PersistenceRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("remote.base_url", "https://example.com/x"))
	require.NoError(t, store.Set("cache.min_case_rows", int64(5)))
	require.NoError(t, store.Set("form.referral_options", []string{"Psychology"}))

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/x", reloaded.GetString("remote.base_url"))
	assert.Equal(t, 5, reloaded.GetInt("cache.min_case_rows"))
	assert.Equal(t, []string{"Psychology"}, reloaded.GetStringSlice("form.referral_options"))
	assert.Equal(t, []string{"cache.min_case_rows", "form.referral_options", "remote.base_url"}, reloaded.Keys())
}

func TestConfigStore_ReadsHandWrittenNestedFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[remote]
backend = "sheets"
spreadsheet_id = "1abc"

[report]
verify_attempts = 3
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "sheets", store.GetString("remote.backend"))
	assert.Equal(t, "1abc", store.GetString("remote.spreadsheet_id"))
	assert.Equal(t, 3, store.GetInt("report.verify_attempts"))
}

func TestConfigStore_SetConflictingKeyRollsBack(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("remote.base_url", "https://example.com"))

	err = store.Set("remote.base_url.extra", "x")

	assert.Error(t, err)
	_, ok := store.Get("remote.base_url.extra")
	assert.False(t, ok)
	assert.Equal(t, "https://example.com", store.GetString("remote.base_url"))
}

func TestConfigStore_SetUnmarshallableValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	err = store.Set("channel", make(chan int))

	assert.Error(t, err)
	_, ok := store.Get("channel")
	assert.False(t, ok)
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("test", "value"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("remote.token", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set("cache.ttl", "1h")
		}()
		go func() {
			defer wg.Done()
			_ = store.GetString("cache.ttl")
		}()
	}
	wg.Wait()

	assert.Equal(t, "1h", store.GetString("cache.ttl"))
}

func TestConfigStore_WatchReloadsOnEdit(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("cache.ttl", "1h"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(store.Path(), []byte("[cache]\nttl = \"5m\"\n"), 0600))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the edit")
	}
	assert.Equal(t, "5m", store.GetString("cache.ttl"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestUnflattenMap(t *testing.T) {
	nested, err := unflattenMap(map[string]any{
		"a.b":   1,
		"a.c.d": "x",
		"e":     true,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"e": true,
	}, nested)
	assert.Equal(t, map[string]any{"a.b": 1, "a.c.d": "x", "e": true}, flattenMap(nested, ""))
}
