package probe

import "time"

// Config holds ICMP probe settings. No probing happens without targets.
type Config struct {
	Targets    []string      `mapstructure:"targets"`
	Interval   time.Duration `mapstructure:"interval"`
	Count      int           `mapstructure:"count"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Decay      float64       `mapstructure:"decay"`
	Privileged bool          `mapstructure:"privileged"`
}

// DefaultConfig returns sensible defaults for the prober.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Count:    3,
		Timeout:  5 * time.Second,
		Decay:    0.9,
	}
}
