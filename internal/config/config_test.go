package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DD_BASE_URL", "DD_MAX_POST_PAGES", "DD_MAX_PROFILES", "DD_BATCH_SIZE", "DD_HEADLESS", "DD_WORKLIST_BACKEND", "DD_PROFILES_SHEET_ID"} {
		t.Setenv(k, "")
	}
	t.Setenv("DD_SHEET_ID", "sheet-1")

	cfg := Load()
	require.Equal(t, "https://damadam.pk", cfg.BaseURL)
	require.Equal(t, 4, cfg.MaxPostPages)
	require.Equal(t, 0, cfg.MaxProfiles)
	require.True(t, cfg.Headless)
	require.Equal(t, "sheets", cfg.Backend)
	require.Equal(t, "sheet-1", cfg.ProfilesSheet())
	require.Equal(t, 10*time.Second, cfg.PageTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DD_BASE_URL", "http://127.0.0.1:9000/")
	t.Setenv("DD_MAX_PROFILES", "")
	t.Setenv("DD_BATCH_SIZE", "7")
	t.Setenv("DD_HEADLESS", "0")
	t.Setenv("DD_DEBUG", "yes")
	t.Setenv("DD_PROFILES_SHEET_ID", "profiles-2")

	cfg := Load()
	require.Equal(t, "http://127.0.0.1:9000", cfg.BaseURL)
	require.Equal(t, 7, cfg.MaxProfiles)
	require.False(t, cfg.Headless)
	require.True(t, cfg.Debug)
	require.Equal(t, "profiles-2", cfg.ProfilesSheet())
}
