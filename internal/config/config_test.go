package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "/home/tester/.local/share/spice/spice.db", cfg.Database.Path)
	assert.Equal(t, 80, cfg.Categorization.AutoApplyThreshold)
	assert.Equal(t, 5, cfg.Categorization.SuggestionLimit)
	assert.InDelta(t, 0.25, cfg.Learning.Rate, 0.0001)
	assert.Equal(t, 80, cfg.Learning.InitialConfidence)
	assert.True(t, cfg.Learning.SeedKeywords)
	assert.Equal(t, 4, cfg.Sweep.Workers)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  path: ":memory:"
categorization:
  auto_apply_threshold: 90
learning:
  rate: 0.5
  seed_keywords: false
sweep:
  workers: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, 90, cfg.Categorization.AutoApplyThreshold)
	assert.InDelta(t, 0.5, cfg.Learning.Rate, 0.0001)
	assert.False(t, cfg.Learning.SeedKeywords)
	assert.Equal(t, 8, cfg.Sweep.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "threshold above 100", key: "categorization.auto_apply_threshold", value: 120},
		{name: "zero suggestion limit", key: "categorization.suggestion_limit", value: 0},
		{name: "learning rate above 1", key: "learning.rate", value: 1.5},
		{name: "negative initial confidence", key: "learning.initial_confidence", value: -1},
		{name: "no workers", key: "sweep.workers", value: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("SPICE_DATA", "/data")

	tests := map[string]string{
		"":                   "",
		":memory:":           ":memory:",
		"~":                  "/home/tester",
		"~/spice.db":         "/home/tester/spice.db",
		"$SPICE_DATA/s.db":   "/data/s.db",
		"/abs/path/spice.db": "/abs/path/spice.db",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExpandPath(in), "ExpandPath(%q)", in)
	}
}
