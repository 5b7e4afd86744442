package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vhevents/internal/rules"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", cfg.Timezone)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
timezone: Europe/Paris
feeds:
  - url: https://example.org/hall.ics
weekly:
  - "scouts|Scouts"
rules:
  - pattern: yoga
    name: Yoga
    weekly: true
    time: "=10:00-11:30"
  - pattern: private
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Paris", cfg.Timezone)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "feed1", cfg.Feeds[0].ID)
	assert.True(t, cfg.HasRules())
	assert.Equal(t, []rules.Rule{
		{Pattern: "scouts", Name: "Scouts", Weekly: true},
		{Pattern: "yoga", Name: "Yoga", Weekly: true, Time: "=10:00-11:30"},
		{Pattern: "private"},
	}, cfg.AllRules())
	assert.Equal(t, "0 6 * * *", cfg.RefreshCron)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: UTC\n"), 0o600))

	t.Setenv("VHEVENTS_TIMEZONE", "Europe/Dublin")
	t.Setenv("VHEVENTS_FEED_URL", "https://example.org/env.ics")
	t.Setenv("VHEVENTS_BASIC_AUTH_USERNAME", "admin")
	t.Setenv("VHEVENTS_BASIC_AUTH_PASSWORD", "pw")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Dublin", cfg.Timezone)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "https://example.org/env.ics", cfg.Feeds[0].URL)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "admin", cfg.BasicAuth.Username)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLocationUnknown(t *testing.T) {
	cfg := &Config{Timezone: "Nowhere/Special"}
	_, err := cfg.Location()
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Rules = []rules.Rule{{Pattern: "yoga", Name: "Yoga", Weekly: true}}
	require.NoError(t, cfg.Save(path))

	got, err := loadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Rules, got.Rules)
}
