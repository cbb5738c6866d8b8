package wire

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the coordinator's runtime configuration. No flag or file parser
// lives in the core — every value comes from the environment via os.Getenv.
type Config struct {
	Addr        string
	DatabaseURL string // empty selects the in-memory ledger and a no-op event bus

	BoardProvider string // "github" or "memory"
	GitHubToken   string
	GitHubOwner   string
	GitHubRepo    string

	AIEnabled bool
	AIBaseURL string
	AIAPIKey  string

	LeaseFloor   time.Duration
	LeaseCeiling time.Duration
	SweepInterval time.Duration

	AnalyzerCacheTTL time.Duration
}

// LoadConfig reads Config from the environment, filling in §4.10's default
// lease bounds and the analyzer's default cache TTL where unset.
func LoadConfig() Config {
	return Config{
		Addr:        listenAddr(envOr("PORT", ":8080")),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		BoardProvider: envOr("BOARD_PROVIDER", "memory"),
		GitHubToken:   os.Getenv("GITHUB_TOKEN"),
		GitHubOwner:   os.Getenv("GITHUB_OWNER"),
		GitHubRepo:    os.Getenv("GITHUB_REPO"),

		AIEnabled: envBool("AI_ENABLED", false),
		AIBaseURL: os.Getenv("AI_BASE_URL"),
		AIAPIKey:  os.Getenv("AI_API_KEY"),

		LeaseFloor:    envDuration("LEASE_FLOOR", time.Hour),
		LeaseCeiling:  envDuration("LEASE_CEILING", 24*time.Hour),
		SweepInterval: envDuration("SWEEP_INTERVAL", time.Minute),

		AnalyzerCacheTTL: envDuration("ANALYZER_CACHE_TTL", 5*time.Second),
	}
}

// listenAddr normalizes a bare port ("8080") to a listen address (":8080").
func listenAddr(v string) string {
	if v != "" && !strings.Contains(v, ":") {
		return ":" + v
	}
	return v
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
