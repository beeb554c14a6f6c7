package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultDisplayCeiling   = int64(1_500_000_000)
	defaultTrackingCacheTTL = 60 * time.Second
)

// WorkflowSettings holds tunables of the verification workflow. Values come
// from an optional YAML file (BANKEU_CONFIG) and are overridden by env vars.
type WorkflowSettings struct {
	// DisplayCeiling caps a single proposal's budget in public aggregates.
	DisplayCeiling int64 `yaml:"display_ceiling"`
	// DefaultYear is used when a query omits the budget year. Zero means the current year.
	DefaultYear int `yaml:"default_year"`
	// TrackingCacheTTL is how long the public tracking summary stays cached.
	TrackingCacheTTL time.Duration `yaml:"tracking_cache_ttl"`
	// NotifyEmails lists extra recipients for transition e-mails.
	NotifyEmails []string `yaml:"notify_emails"`
	// CORSOrigins are the allowed browser origins.
	CORSOrigins []string `yaml:"cors_origins"`
}

// Workflow is the process-wide settings instance, populated by LoadWorkflowSettings.
var Workflow = DefaultWorkflowSettings()

func DefaultWorkflowSettings() WorkflowSettings {
	return WorkflowSettings{
		DisplayCeiling:   defaultDisplayCeiling,
		TrackingCacheTTL: defaultTrackingCacheTTL,
		CORSOrigins:      []string{"http://localhost:3000"},
	}
}

// YearOrDefault resolves a zero year to the configured or current budget year.
func (s WorkflowSettings) YearOrDefault(year int) int {
	if year > 0 {
		return year
	}
	if s.DefaultYear > 0 {
		return s.DefaultYear
	}
	return time.Now().Year()
}

// LoadWorkflowSettings reads the YAML file at path (if any) and applies env overrides.
func LoadWorkflowSettings(path string) (WorkflowSettings, error) {
	settings := DefaultWorkflowSettings()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Printf("Workflow config %s not found, using defaults", path)
		case err != nil:
			return settings, fmt.Errorf("read workflow config: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &settings); err != nil {
				return settings, fmt.Errorf("parse workflow config: %w", err)
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv("DISPLAY_CEILING")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return settings, fmt.Errorf("invalid DISPLAY_CEILING %q", v)
		}
		settings.DisplayCeiling = n
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_BUDGET_YEAR")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return settings, fmt.Errorf("invalid DEFAULT_BUDGET_YEAR %q", v)
		}
		settings.DefaultYear = n
	}
	if v := strings.TrimSpace(os.Getenv("TRACKING_CACHE_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return settings, fmt.Errorf("invalid TRACKING_CACHE_TTL %q", v)
		}
		settings.TrackingCacheTTL = d
	}
	if v := strings.TrimSpace(os.Getenv("NOTIFY_EMAILS")); v != "" {
		settings.NotifyEmails = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); v != "" {
		settings.CORSOrigins = splitList(v)
	}

	if settings.DisplayCeiling <= 0 {
		settings.DisplayCeiling = defaultDisplayCeiling
	}
	return settings, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
