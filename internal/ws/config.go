package ws

import "time"

// Config holds settings for the series stream.
type Config struct {
	BroadcastInterval time.Duration `mapstructure:"broadcast_interval"`
}

// DefaultConfig returns a one second broadcast interval.
func DefaultConfig() Config {
	return Config{BroadcastInterval: time.Second}
}
