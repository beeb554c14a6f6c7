package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWorkflowSettingsDefaults(t *testing.T) {
	settings, err := LoadWorkflowSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, int64(1_500_000_000), settings.DisplayCeiling)
	assert.Equal(t, 60*time.Second, settings.TrackingCacheTTL)
}

func TestLoadWorkflowSettingsFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bankeu.yaml")
	content := []byte(`display_ceiling: 2000000000
default_year: 2025
tracking_cache_ttl: 90s
notify_emails:
  - dpmd@example.go.id
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("DEFAULT_BUDGET_YEAR", "2026")
	t.Setenv("CORS_ORIGINS", "https://bankeu.example.go.id, ,http://localhost:5173")

	settings, err := LoadWorkflowSettings(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000_000), settings.DisplayCeiling)
	assert.Equal(t, 2026, settings.DefaultYear)
	assert.Equal(t, 90*time.Second, settings.TrackingCacheTTL)
	assert.Equal(t, []string{"dpmd@example.go.id"}, settings.NotifyEmails)
	assert.Equal(t, []string{"https://bankeu.example.go.id", "http://localhost:5173"}, settings.CORSOrigins)
}

func TestLoadWorkflowSettingsRejectsBadCeiling(t *testing.T) {
	t.Setenv("DISPLAY_CEILING", "-1")
	_, err := LoadWorkflowSettings("")
	assert.Error(t, err)
}

func TestYearOrDefault(t *testing.T) {
	s := WorkflowSettings{DefaultYear: 2025}
	assert.Equal(t, 2027, s.YearOrDefault(2027))
	assert.Equal(t, 2025, s.YearOrDefault(0))
	assert.Equal(t, time.Now().Year(), WorkflowSettings{}.YearOrDefault(0))
}
