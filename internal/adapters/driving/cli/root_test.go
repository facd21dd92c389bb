package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useBootstrap installs a bootstrap function for one test.
func useBootstrap(t *testing.T, fn BootstrapFunc) {
	t.Helper()
	SetBootstrap(fn)
	t.Cleanup(func() {
		SetBootstrap(nil)
		SetServices(nil)
		cleanup = nil
		opts = Options{}
		resetFlags(t)
	})
}

func TestSetServices_Nil(t *testing.T) {
	SetServices(&Services{Form: newMockForm()})
	SetServices(nil)

	assert.Nil(t, formService)
	assert.Nil(t, settingsService)
	assert.Nil(t, configWatcher)
}

func TestSetVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)

	SetVersion("")
	assert.Equal(t, "1.2.3", version)
}

func TestRequireForm(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		useServices(t, nil)

		_, err := requireForm(context.Background())
		assert.EqualError(t, err, "form service not configured")
	})

	t.Run("init error", func(t *testing.T) {
		form := newMockForm()
		form.InitErr = errors.New("offline")
		useServices(t, &Services{Form: form})

		_, err := requireForm(context.Background())
		assert.EqualError(t, err, "offline")
	})

	t.Run("loaded", func(t *testing.T) {
		form := newMockForm()
		useServices(t, &Services{Form: form})

		got, err := requireForm(context.Background())
		require.NoError(t, err)
		assert.Same(t, form, got)
		assert.Equal(t, 1, form.Inits)
	})
}

func TestBootstrap_WiresServicesAndCleansUp(t *testing.T) {
	form := newMockForm(testCases()...)
	var gotOpts Options
	cleanups := 0
	useBootstrap(t, func(_ context.Context, o Options) (*Services, func() error, error) {
		gotOpts = o
		return &Services{Form: form}, func() error {
			cleanups++
			return nil
		}, nil
	})

	out, err := execute(t, nil, "--config-dir", "/tmp/r3", "--data-dir", "/tmp/r3/data", "cases")

	require.NoError(t, err)
	assert.Contains(t, out, "C001 - Alice")
	assert.Equal(t, "/tmp/r3", gotOpts.ConfigDir)
	assert.Equal(t, "/tmp/r3/data", gotOpts.DataDir)
	assert.Equal(t, 1, cleanups)
}

func TestBootstrap_Error(t *testing.T) {
	useBootstrap(t, func(context.Context, Options) (*Services, func() error, error) {
		return nil, nil, errors.New("config is broken")
	})

	_, err := execute(t, nil, "cases")

	assert.EqualError(t, err, "config is broken")
}

func TestBootstrap_SkippedForVersion(t *testing.T) {
	called := false
	useBootstrap(t, func(context.Context, Options) (*Services, func() error, error) {
		called = true
		return &Services{}, nil, nil
	})

	_, err := execute(t, nil, "version")

	require.NoError(t, err)
	assert.False(t, called)
}

func TestExecuteContext_CleansUpAfterFailure(t *testing.T) {
	form := newMockForm()
	form.InitErr = errors.New("offline")
	cleanups := 0
	useBootstrap(t, func(context.Context, Options) (*Services, func() error, error) {
		return &Services{Form: form}, func() error {
			cleanups++
			return nil
		}, nil
	})

	rootCmd.SetArgs([]string{"cases"})
	defer rootCmd.SetArgs(nil)

	err := ExecuteContext(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")
	assert.Equal(t, 1, cleanups)
}

func TestExecuteContext_ReportsCleanupError(t *testing.T) {
	useBootstrap(t, func(context.Context, Options) (*Services, func() error, error) {
		return &Services{}, func() error { return errors.New("close failed") }, nil
	})

	rootCmd.SetArgs([]string{"cache", "clear"})
	defer rootCmd.SetArgs(nil)

	err := ExecuteContext(context.Background())

	// cache clear fails first, the cleanup error does not replace it.
	assert.EqualError(t, err, "cache service not configured")
}
