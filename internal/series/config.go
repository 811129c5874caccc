package series

import "time"

// Config holds configuration for the series manager.
type Config struct {
	DefaultKind        Kind          `mapstructure:"default_kind"`
	DefaultDecay       float64       `mapstructure:"default_decay"`
	AutoCreate         bool          `mapstructure:"auto_create"`
	CheckpointInterval time.Duration `mapstructure:"checkpoint_interval"`
	HistoryRetention   time.Duration `mapstructure:"history_retention"`
	MaxSeries          int           `mapstructure:"max_series"`
}

// DefaultConfig returns sensible defaults for the series manager.
func DefaultConfig() Config {
	return Config{
		DefaultKind:        KindStatistics,
		DefaultDecay:       0.9,
		AutoCreate:         true,
		CheckpointInterval: time.Minute,
		HistoryRetention:   7 * 24 * time.Hour,
		MaxSeries:          10000,
	}
}
