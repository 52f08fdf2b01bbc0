// Package config loads server settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string

	// Default per-slot clocks, overridable per session at creation.
	BanTimerMs  int64
	PickTimerMs int64

	// Sessions idle in config/lobby longer than this are evicted.
	SessionIdleTTL time.Duration
	SweepInterval  time.Duration

	CatalogPath string // optional champions.yaml override

	RedisURL    string // optional snapshot cache
	DatabaseURL string // optional postgres archive
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:     ":8080",
		BanTimerMs:     25_000,
		PickTimerMs:    30_000,
		SessionIdleTTL: 30 * time.Minute,
		SweepInterval:  time.Minute,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("BAN_TIMER_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.BanTimerMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("PICK_TIMER_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.PickTimerMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_IDLE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SessionIdleTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("SWEEP_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SweepInterval = d
		}
	}

	cfg.CatalogPath = strings.TrimSpace(os.Getenv("CATALOG_PATH"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	return cfg, nil
}
