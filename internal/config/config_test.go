package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mockredis.json")

	cfg := DefaultConfig()
	cfg.Backend = BackendBadger
	cfg.Name = "cache"
	cfg.Scripting = false
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"addr":":7000"}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.Backend)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MOCKREDIS_ADDR", ":7001")
	t.Setenv("MOCKREDIS_BACKEND", BackendFile)
	t.Setenv("MOCKREDIS_SCRIPTING", "false")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, ":7001", cfg.Addr)
	assert.Equal(t, BackendFile, cfg.Backend)
	assert.False(t, cfg.Scripting)
	assert.True(t, cfg.Metrics)

	t.Setenv("MOCKREDIS_METRICS", "maybe")
	assert.Error(t, cfg.ApplyEnv())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, LoadEnvFile(filepath.Join(dir, ".env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MOCKREDIS_NAME=fromfile\n"), 0o644))
	t.Setenv("MOCKREDIS_NAME", "")
	os.Unsetenv("MOCKREDIS_NAME")

	require.NoError(t, LoadEnvFile(path))
	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "fromfile", cfg.Name)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"no addr":     func(c *Config) { c.Addr = "" },
		"no name":     func(c *Config) { c.Name = "" },
		"bad backend": func(c *Config) { c.Backend = "redis" },
		"no data dir": func(c *Config) { c.Backend = BackendFile; c.DataDir = "" },
		"bad level":   func(c *Config) { c.LogLevel = "loud" },
	} {
		cfg := DefaultConfig()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}
	assert.True(t, DefaultConfig().Verbose())
}
