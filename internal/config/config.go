// Package config loads runstats configuration from file and environment
// and decodes it into the typed settings each component consumes.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/HerbHall/runstats/internal/auth"
	"github.com/HerbHall/runstats/internal/probe"
	"github.com/HerbHall/runstats/internal/series"
	"github.com/HerbHall/runstats/internal/server"
	"github.com/HerbHall/runstats/internal/ws"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides: RS_SERVER_PORT=9090.
const EnvPrefix = "RS"

// DatabaseConfig locates the SQLite checkpoint database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// Config is the decoded runstats configuration.
type Config struct {
	Server   server.Config  `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Series   series.Config  `mapstructure:"series"`
	Auth     auth.Config    `mapstructure:"auth"`
	Stream   ws.Config      `mapstructure:"stream"`
	Probe    probe.Config   `mapstructure:"probe"`
}

// Load reads configuration from file and environment variables.
// An empty configPath searches for runstats.yaml in ., ./configs and
// /etc/runstats; a missing file is not an error.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("runstats")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/runstats")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/runstats.db")

	sc := series.DefaultConfig()
	v.SetDefault("series.default_kind", string(sc.DefaultKind))
	v.SetDefault("series.default_decay", sc.DefaultDecay)
	v.SetDefault("series.auto_create", sc.AutoCreate)
	v.SetDefault("series.checkpoint_interval", sc.CheckpointInterval)
	v.SetDefault("series.history_retention", sc.HistoryRetention)
	v.SetDefault("series.max_series", sc.MaxSeries)

	ac := auth.DefaultConfig()
	v.SetDefault("auth.jwt_secret", ac.JWTSecret)
	v.SetDefault("auth.token_ttl", ac.TokenTTL)

	v.SetDefault("stream.broadcast_interval", ws.DefaultConfig().BroadcastInterval)

	pc := probe.DefaultConfig()
	v.SetDefault("probe.targets", []string{})
	v.SetDefault("probe.interval", pc.Interval)
	v.SetDefault("probe.count", pc.Count)
	v.SetDefault("probe.timeout", pc.Timeout)
	v.SetDefault("probe.decay", pc.Decay)
	v.SetDefault("probe.privileged", pc.Privileged)
}

// Decode unmarshals v into a Config and validates it.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if !c.Series.DefaultKind.Valid() {
		return fmt.Errorf("series.default_kind %q: %w", c.Series.DefaultKind, series.ErrInvalidKind)
	}
	if c.Series.DefaultDecay <= 0 || c.Series.DefaultDecay > 1 {
		return fmt.Errorf("series.default_decay %v must be in (0, 1]", c.Series.DefaultDecay)
	}
	if c.Series.MaxSeries < 0 {
		return fmt.Errorf("series.max_series %d must not be negative", c.Series.MaxSeries)
	}
	if c.Series.CheckpointInterval < 0 {
		return fmt.Errorf("series.checkpoint_interval %v must not be negative", c.Series.CheckpointInterval)
	}
	if c.Auth.Enabled() && len(c.Auth.JWTSecret) < 16 {
		return errors.New("auth.jwt_secret must be at least 16 bytes")
	}
	if c.Stream.BroadcastInterval <= 0 {
		return fmt.Errorf("stream.broadcast_interval %v must be positive", c.Stream.BroadcastInterval)
	}
	if len(c.Probe.Targets) > 0 {
		if c.Probe.Interval <= 0 || c.Probe.Timeout <= 0 {
			return fmt.Errorf("probe.interval %v and probe.timeout %v must be positive", c.Probe.Interval, c.Probe.Timeout)
		}
		if c.Probe.Count <= 0 {
			return fmt.Errorf("probe.count %d must be positive", c.Probe.Count)
		}
		if c.Probe.Decay <= 0 || c.Probe.Decay > 1 {
			return fmt.Errorf("probe.decay %v must be in (0, 1]", c.Probe.Decay)
		}
	}
	return nil
}
