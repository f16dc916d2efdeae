package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("VIDASSIST_TEST_HOST", "db.internal")

	out := expandEnv("host: ${VIDASSIST_TEST_HOST:localhost}\nport: ${VIDASSIST_TEST_PORT:5432}\nkey: ${VIDASSIST_TEST_UNSET}")
	assert.Contains(t, out, "host: db.internal")
	assert.Contains(t, out, "port: 5432")
	assert.Contains(t, out, "key: ${VIDASSIST_TEST_UNSET}")
}

func TestLoadFrom_DefaultsWithoutFiles(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "vidassist-api", cfg.App.Name)
	assert.Equal(t, 120*time.Second, cfg.Chat.TurnTimeout)
	assert.Equal(t, 60*time.Second, cfg.Artifacts.PollTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Artifacts.PollInterval)
	assert.Equal(t, 1, cfg.Chat.MaxFuzzyDistance)
	assert.Equal(t, "free", cfg.Entitlements.DefaultPlan)
	assert.False(t, cfg.Entitlements.Plans["free"].Features["image-generation"].Enabled)
}

func TestLoadFrom_EnvFileOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "staging")
	t.Setenv("VIDASSIST_TEST_TIMEOUT", "30s")

	base := "chat:\n  turn_timeout: 120s\n  max_tool_rounds: 4\n"
	staging := "chat:\n  turn_timeout: ${VIDASSIST_TEST_TIMEOUT:90s}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(base), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.staging.yaml"), []byte(staging), 0o600))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Chat.TurnTimeout)
	assert.Equal(t, 4, cfg.Chat.MaxToolRounds)
}

func TestLoadFrom_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "production")

	bad := "app:\n  env: production\nsession:\n  backend: etcd\nartifacts:\n  poll_interval: 2m\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(bad), 0o600))

	_, err := LoadFrom(dir)
	require.Error(t, err)
	assert.ErrorContains(t, err, "security.jwt.secret")
	assert.ErrorContains(t, err, `session.backend "etcd"`)
	assert.ErrorContains(t, err, "artifacts.poll_interval")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		var c Config
		c.Session.Backend = "redis"
		c.Chat.TurnTimeout = time.Minute
		c.Server.HTTP.WriteTimeout = 2 * time.Minute
		c.Artifacts.PollInterval = time.Second
		c.Artifacts.PollTimeout = time.Minute
		return &c
	}
	require.NoError(t, valid().Validate())

	c := valid()
	c.Server.HTTP.WriteTimeout = 30 * time.Second
	assert.ErrorContains(t, c.Validate(), "write_timeout")

	c = valid()
	c.Observability.Tracing.SampleRate = 1.5
	assert.ErrorContains(t, c.Validate(), "sample_rate")

	c = valid()
	c.App.Env = "production"
	c.Security.JWT.Secret = "change-me"
	assert.ErrorContains(t, c.Validate(), "jwt.secret")
}
