// Package config loads process-wide settings from the environment at
// startup, following the env(key, default) idiom in cmd/chrc/main.go.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every recognized environment key from spec.md §6.3 plus the
// pipeline tunables spec.md names inline (concurrency cap, timeouts,
// bandit pending-impression timeout).
type Config struct {
	SearchAPIKey  string
	SearchBaseURL string
	LLMAPIKey     string
	LLMBaseURL    string
	LLMModel      string
	ListenPort    int
	WebOrigin     string

	SearchConcurrency    int
	SearchTimeout        time.Duration
	MaxResultsPerQuery   int
	FetchTimeout         time.Duration
	BanditPendingTimeout time.Duration

	LogLevel string

	// EventStoreDriver selects the eventstore backend: "memory" (default)
	// or "sqlite". See internal/eventstore.
	EventStoreDriver string
	EventStorePath   string
}

// Load reads Config from the environment, applying spec.md's defaults.
func Load() Config {
	return Config{
		SearchAPIKey:  os.Getenv("SEARCH_API_KEY"),
		SearchBaseURL: env("SEARCH_BASE_URL", "https://api.search.brave.com/res/v1/web/search"),
		LLMAPIKey:     os.Getenv("LLM_API_KEY"),
		LLMBaseURL:    env("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModel:      env("LLM_MODEL", "gpt-4o-mini"),
		ListenPort:    envInt("LISTEN_PORT", 3001),
		WebOrigin:     env("WEB_ORIGIN", "http://localhost:5173"),

		SearchConcurrency:    envInt("SEARCH_CONCURRENCY", 5),
		SearchTimeout:        envDuration("SEARCH_TIMEOUT_MS", 15*time.Second),
		MaxResultsPerQuery:   envInt("SEARCH_MAX_RESULTS", 10),
		FetchTimeout:         envDuration("FETCH_TIMEOUT_MS", 8*time.Second),
		BanditPendingTimeout: envDuration("BANDIT_PENDING_TIMEOUT_MS", 25*time.Second),

		LogLevel: env("LOG_LEVEL", "info"),

		EventStoreDriver: env("EVENT_STORE_DRIVER", "memory"),
		EventStorePath:   env("EVENT_STORE_PATH", "data/events.db"),
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
