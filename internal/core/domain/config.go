package domain

import "time"

// Conflict policy names accepted in configuration.
const (
	PolicyDefault    = "default"
	PolicyServerWins = "server-wins"
	PolicyClientWins = "client-wins"
	PolicyManual     = "manual"
)

// Config holds the engine's tunable parameters. All values are pure
// parameters; there is no environment-specific wiring here.
type Config struct {
	// SyncInterval is how often the scheduler triggers an unfiltered
	// pass while online and idle.
	SyncInterval time.Duration `toml:"sync_interval"`

	// RetryCeiling is the number of transport failures after which an
	// action is marked failed and excluded from automatic passes.
	RetryCeiling int `toml:"retry_ceiling"`

	// CacheTTL is how long a cached record stays fresh.
	CacheTTL time.Duration `toml:"cache_ttl"`

	// CacheMaxBytes caps the cache size. Above the cap, records are
	// evicted oldest CachedAt first. Zero disables eviction.
	CacheMaxBytes int64 `toml:"cache_max_bytes"`

	// ConflictPolicy selects the resolver strategy. Unknown values
	// fall back to manual, the safe default.
	ConflictPolicy string `toml:"conflict_policy"`

	// HistoryLimit bounds the sync history ring buffer.
	HistoryLimit int `toml:"history_limit"`

	// RemoteURL is the base URL of the record service.
	RemoteURL string `toml:"remote_url"`

	// ActionTimeout bounds the wait for a single remote call.
	// Timeouts are per-action, not per-pass.
	ActionTimeout time.Duration `toml:"action_timeout"`

	// RequestsPerSecond and Burst configure the remote rate limiter.
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`

	// ProbeInterval is how often the connectivity monitor probes.
	ProbeInterval time.Duration `toml:"probe_interval"`

	// ProbeDwell is the minimum time a new connectivity reading must
	// hold before the monitor flips state, to damp flapping.
	ProbeDwell time.Duration `toml:"probe_dwell"`
}

// DefaultConfig returns sensible defaults for the engine.
func DefaultConfig() Config {
	return Config{
		SyncInterval:      5 * time.Minute,
		RetryCeiling:      3,
		CacheTTL:          24 * time.Hour,
		CacheMaxBytes:     64 << 20, // 64 MiB
		ConflictPolicy:    PolicyDefault,
		HistoryLimit:      50,
		ActionTimeout:     15 * time.Second,
		RequestsPerSecond: 10.0,
		Burst:             20,
		ProbeInterval:     10 * time.Second,
		ProbeDwell:        2 * time.Second,
	}
}

// Normalise fills zero fields with defaults so a partially populated
// config file still yields a working engine.
func (c *Config) Normalise() {
	def := DefaultConfig()
	if c.SyncInterval <= 0 {
		c.SyncInterval = def.SyncInterval
	}
	if c.RetryCeiling <= 0 {
		c.RetryCeiling = def.RetryCeiling
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = def.CacheTTL
	}
	if c.ConflictPolicy == "" {
		c.ConflictPolicy = def.ConflictPolicy
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = def.HistoryLimit
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = def.ActionTimeout
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = def.RequestsPerSecond
	}
	if c.Burst <= 0 {
		c.Burst = def.Burst
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = def.ProbeInterval
	}
	if c.ProbeDwell <= 0 {
		c.ProbeDwell = def.ProbeDwell
	}
}
