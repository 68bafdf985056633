package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FetchTimeout != 8*time.Second {
		t.Fatalf("FetchTimeout = %v want 8s", cfg.FetchTimeout)
	}
	if cfg.CacheTTL != 7*24*time.Hour {
		t.Fatalf("CacheTTL = %v want 7 days", cfg.CacheTTL)
	}
	if cfg.MaxArticles != 30 {
		t.Fatalf("MaxArticles = %d want 30", cfg.MaxArticles)
	}
	if cfg.CacheKey != "news" {
		t.Fatalf("CacheKey = %q want news", cfg.CacheKey)
	}
	if cfg.FetchRetries != 0 {
		t.Fatalf("FetchRetries = %d want 0", cfg.FetchRetries)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "memory")
	t.Setenv("FETCH_TIMEOUT_SECONDS", "3")
	t.Setenv("REFRESH_CRON", "0 * * * *")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorageType != "memory" {
		t.Fatalf("StorageType = %q", cfg.StorageType)
	}
	if cfg.FetchTimeout != 3*time.Second {
		t.Fatalf("FetchTimeout = %v", cfg.FetchTimeout)
	}
	if cfg.RefreshCron != "0 * * * *" {
		t.Fatalf("RefreshCron = %q", cfg.RefreshCron)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"FETCH_TIMEOUT_SECONDS": "0",
		"MAX_ARTICLES":          "-1",
		"CACHE_TTL_SECONDS":     "0",
		"FETCH_RETRIES":         "-2",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}
