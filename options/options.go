// Package options provides a way to manage global options settings.
package options

import "time"

// Options is a struct that holds the global options settings.
type Options struct {
	AnalysisCache AnalysisCache `mapstructure:"analysis_cache"`
	Metrics       Metrics       `mapstructure:"metrics"`
	DistCache     DistCache     `mapstructure:"dist_cache"`
}

// AnalysisCache is a struct that holds the settings for the badger-backed
// local cache of computed dataflow/dominance/loop results.
type AnalysisCache struct {
	Path            string        `mapstructure:"path"`
	GCIntervalM     time.Duration `mapstructure:"gc_interval_m"`
	ValueLogMaxSize int64         `mapstructure:"value_log_max_size"`
}

// Metrics is a struct that holds the settings for a ClickHouse analysis-run
// metrics sink.
type Metrics struct {
	DebugEnabled     bool          `mapstructure:"debug_enabled"`
	Hosts            []string      `mapstructure:"hosts"`
	Database         string        `mapstructure:"database"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	MaxExecutionTime int           `mapstructure:"max_execution_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime_m"`
}

// DistCache is a struct that holds the settings for a Redis-backed
// cross-worker result cache.
type DistCache struct {
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff_ms"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff_ms"`
	TTL             time.Duration `mapstructure:"ttl_m"`
}
