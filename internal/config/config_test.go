package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/konall/korhah/core/reactive"
)

func TestDefaultIsShareableWithMetricsDisabled(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, ModeShareable, cfg.Mode)
	require.False(t, cfg.Metrics.Enabled)
	require.Equal(t, reactive.ModeShareable, cfg.ReactiveMode())
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadParsesYAMLAndEnvOverridesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "korhah.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: single-thread\nnamespace: demo\n"), 0o644))

	t.Setenv("KORHAH_NAMESPACE", "overridden")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ModeSingleThread, cfg.Mode)
	require.Equal(t, "overridden", cfg.Namespace)
	require.Equal(t, reactive.ModeSingleThread, cfg.ReactiveMode())
}

func TestValidateRejectsMetricsEnabledWithoutEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Enabled = true
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Default()
	cfg.Mode = "bogus"
	require.Error(t, cfg.Validate())
}
