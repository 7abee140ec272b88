package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Behavior.ExpandInstalledSubtrees)
	assert.True(t, cfg.Behavior.RetryTapFetch)
	assert.Contains(t, cfg.Build.EnvAllowList, "PATH")
	assert.Zero(t, cfg.Build.TimeoutMinutes)
	assert.Empty(t, cfg.Bottle.BlockedFormulae)
}

func TestLoad_PrefixFileOverrides(t *testing.T) {
	prefix := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(prefix, "etc"), 0755))
	content := `
[behavior]
retry_tap_fetch = false

[build]
timeout_minutes = 90

[bottle]
blocked_formulae = ["glibc"]
`
	require.NoError(t, os.WriteFile(filepath.Join(prefix, "etc", "lbrew.toml"), []byte(content), 0644))

	cfg, err := Load(prefix)
	require.NoError(t, err)

	assert.False(t, cfg.Behavior.RetryTapFetch)
	assert.Equal(t, 90, cfg.Build.TimeoutMinutes)
	assert.Equal(t, []string{"glibc"}, cfg.Bottle.BlockedFormulae)

	// Untouched keys keep their defaults.
	assert.True(t, cfg.Behavior.ExpandInstalledSubtrees)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	prefix := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(prefix, "etc"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(prefix, "etc", "lbrew.toml"),
		[]byte("[build]\ntimeout_minutes = 90\n"), 0644))

	t.Setenv("LBREW_CFG_BUILD_TIMEOUT_MINUTES", "15")

	cfg, err := Load(prefix)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Build.TimeoutMinutes)
}

func TestGet_InitializesDefaults(t *testing.T) {
	globalConfig = nil

	cfg := Get()
	require.NotNil(t, cfg)
	assert.True(t, cfg.Behavior.RetryTapFetch)
	assert.Contains(t, GetBuild().EnvAllowList, "HOME")
}

func TestInitialize_ReplacesGlobal(t *testing.T) {
	custom := Default()
	custom.Build.TimeoutMinutes = 5
	Initialize(custom)
	t.Cleanup(func() { globalConfig = nil })

	assert.Equal(t, 5, GetBuild().TimeoutMinutes)
	assert.True(t, GetBehavior().ExpandInstalledSubtrees)
	assert.Empty(t, GetBottle().ForcedFormulae)
}
