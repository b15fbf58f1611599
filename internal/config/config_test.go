package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("REFRESH_POLL_SECS", "")
	t.Setenv("STALENESS_HOURS", "")
	t.Setenv("SCRAPER_DELAY_MS", "")
	t.Setenv("SCRAPER_CONCURRENCY", "")

	cfg := Load()
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.RefreshPollSecs != 0 {
		t.Fatalf("expected poller disabled by default, got %d", cfg.RefreshPollSecs)
	}
	if cfg.StalenessHours != 24 {
		t.Fatalf("expected staleness window 24h, got %d", cfg.StalenessHours)
	}
	if cfg.ScraperDelayMs != 1500 {
		t.Fatalf("expected scraper delay 1500ms, got %d", cfg.ScraperDelayMs)
	}
	if cfg.ScraperConcurrency != 4 {
		t.Fatalf("expected scraper concurrency 4, got %d", cfg.ScraperConcurrency)
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("REFRESH_AUTH_TOKEN", "secret")
	t.Setenv("TCG_API_KEY", "tcg-key")
	t.Setenv("PRICETRACKER_API_KEY", "pt-key")
	t.Setenv("REFRESH_POLL_SECS", "300")
	t.Setenv("STALENESS_HOURS", "12")

	cfg := Load()
	if cfg.DatabaseURL != "postgres://example" || cfg.RedisURL != "redis:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.RefreshAuthToken != "secret" || cfg.TCGAPIKey != "tcg-key" || cfg.PriceTrackerAPIKey != "pt-key" {
		t.Fatalf("unexpected credentials: %+v", cfg)
	}
	if cfg.RefreshPollSecs != 300 || cfg.StalenessHours != 12 {
		t.Fatalf("unexpected intervals: %+v", cfg)
	}

	t.Setenv("REFRESH_POLL_SECS", "bad")
	cfg = Load()
	if cfg.RefreshPollSecs != 0 {
		t.Fatalf("invalid poll secs should fall back to default, got %d", cfg.RefreshPollSecs)
	}
}
