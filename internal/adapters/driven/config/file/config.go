// Package file loads and saves the engine configuration as a TOML
// file in the syncdesk config directory.
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
)

// fileConfig is the on-disk shape. Durations are plain numbers in
// human units so the file stays hand-editable.
type fileConfig struct {
	SyncIntervalMinutes  int     `toml:"sync_interval_minutes"`
	RetryCeiling         int     `toml:"retry_ceiling"`
	CacheTTLHours        int     `toml:"cache_ttl_hours"`
	CacheMaxBytes        int64   `toml:"cache_max_bytes"`
	ConflictPolicy       string  `toml:"conflict_policy"`
	HistoryLimit         int     `toml:"history_limit"`
	RemoteURL            string  `toml:"remote_url"`
	ActionTimeoutSeconds int     `toml:"action_timeout_seconds"`
	RequestsPerSecond    float64 `toml:"requests_per_second"`
	Burst                int     `toml:"burst"`
	ProbeIntervalSeconds int     `toml:"probe_interval_seconds"`
	ProbeDwellSeconds    int     `toml:"probe_dwell_seconds"`
}

// DefaultPath returns the default config file location,
// ~/.syncdesk/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".syncdesk", "config.toml"), nil
}

// Load reads the config file at path. A missing file yields the
// defaults; unset fields in a present file fall back to defaults.
func Load(path string) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	loaded := domain.Config{
		SyncInterval:      time.Duration(fc.SyncIntervalMinutes) * time.Minute,
		RetryCeiling:      fc.RetryCeiling,
		CacheTTL:          time.Duration(fc.CacheTTLHours) * time.Hour,
		CacheMaxBytes:     fc.CacheMaxBytes,
		ConflictPolicy:    fc.ConflictPolicy,
		HistoryLimit:      fc.HistoryLimit,
		RemoteURL:         fc.RemoteURL,
		ActionTimeout:     time.Duration(fc.ActionTimeoutSeconds) * time.Second,
		RequestsPerSecond: fc.RequestsPerSecond,
		Burst:             fc.Burst,
		ProbeInterval:     time.Duration(fc.ProbeIntervalSeconds) * time.Second,
		ProbeDwell:        time.Duration(fc.ProbeDwellSeconds) * time.Second,
	}
	loaded.Normalise()
	return loaded, nil
}

// Save writes the config to path, creating the directory if needed.
func Save(path string, cfg domain.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	fc := fileConfig{
		SyncIntervalMinutes:  int(cfg.SyncInterval / time.Minute),
		RetryCeiling:         cfg.RetryCeiling,
		CacheTTLHours:        int(cfg.CacheTTL / time.Hour),
		CacheMaxBytes:        cfg.CacheMaxBytes,
		ConflictPolicy:       cfg.ConflictPolicy,
		HistoryLimit:         cfg.HistoryLimit,
		RemoteURL:            cfg.RemoteURL,
		ActionTimeoutSeconds: int(cfg.ActionTimeout / time.Second),
		RequestsPerSecond:    cfg.RequestsPerSecond,
		Burst:                cfg.Burst,
		ProbeIntervalSeconds: int(cfg.ProbeInterval / time.Second),
		ProbeDwellSeconds:    int(cfg.ProbeDwell / time.Second),
	}

	data, err := toml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
