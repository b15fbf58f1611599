package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL string
	RedisURL    string
	Port        int

	RefreshAuthToken string

	TCGAPIKey          string
	PriceTrackerAPIKey string

	RefreshPollSecs      int
	StalenessHours       int
	ScraperDelayMs       int
	ScraperCacheTTLSecs  int
	ScraperConcurrency   int
	ScraperSearchResults int
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		RefreshAuthToken:   strings.TrimSpace(os.Getenv("REFRESH_AUTH_TOKEN")),
		TCGAPIKey:          strings.TrimSpace(os.Getenv("TCG_API_KEY")),
		PriceTrackerAPIKey: strings.TrimSpace(os.Getenv("PRICETRACKER_API_KEY")),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.RefreshAuthToken == "" {
		log.Println("Warning: REFRESH_AUTH_TOKEN not set, refresh endpoint is open")
	}
	if cfg.TCGAPIKey == "" {
		log.Println("Warning: TCG_API_KEY not set, card provider lookups will fail")
	}
	if cfg.PriceTrackerAPIKey == "" {
		log.Println("Warning: PRICETRACKER_API_KEY not set, sealed provider lookups will fail")
	}

	cfg.Port = 8080
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Port = n
		}
	}

	// 0 disables the background poller; refreshes then run only via the
	// authenticated HTTP trigger.
	cfg.RefreshPollSecs = 0
	if v := strings.TrimSpace(os.Getenv("REFRESH_POLL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RefreshPollSecs = n
		}
	}

	cfg.StalenessHours = 24
	if v := strings.TrimSpace(os.Getenv("STALENESS_HOURS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.StalenessHours = n
		}
	}

	cfg.ScraperDelayMs = 1500
	if v := strings.TrimSpace(os.Getenv("SCRAPER_DELAY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ScraperDelayMs = n
		}
	}

	cfg.ScraperCacheTTLSecs = 3600
	if v := strings.TrimSpace(os.Getenv("SCRAPER_CACHE_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ScraperCacheTTLSecs = n
		}
	}

	cfg.ScraperConcurrency = 4
	if v := strings.TrimSpace(os.Getenv("SCRAPER_CONCURRENCY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ScraperConcurrency = n
		}
	}

	cfg.ScraperSearchResults = 5
	if v := strings.TrimSpace(os.Getenv("SCRAPER_SEARCH_RESULTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ScraperSearchResults = n
		}
	}

	return cfg
}
