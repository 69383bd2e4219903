package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "BATCHDL"

// Config holds the resolved settings for a batchdl run.
type Config struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	ItemTimeout time.Duration `mapstructure:"item_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	Atomic      bool          `mapstructure:"atomic"`
	ProgressLog bool          `mapstructure:"progress_log"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFormat   string        `mapstructure:"log_format"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"timeout":      "timeout",
	"item-timeout": "item_timeout",
	"user-agent":   "user_agent",
	"atomic":       "atomic",
	"progress-log": "progress_log",
	"log-level":    "log_level",
	"log-format":   "log_format",
}

// RegisterFlags adds the flags understood by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default()

	fs.Duration("timeout", def.Timeout, "per-request timeout, 0 for none")
	fs.Duration("item-timeout", def.ItemTimeout, "per-item timeout, 0 for none")
	fs.String("user-agent", def.UserAgent, "User-Agent header sent with every request")
	fs.Bool("atomic", def.Atomic, "write to a temp file and rename on success")
	fs.Bool("progress-log", def.ProgressLog, "log transfer progress at most once per second")
	fs.String("log-level", def.LogLevel, "log level: debug, info, warn, error")
	fs.String("log-format", def.LogFormat, "log format: text or json")
}

// Load resolves the configuration. cfgFile may be empty, in which case a
// missing config file is not an error. fs may be nil.
func Load(cfgFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("item_timeout", def.ItemTimeout)
	v.SetDefault("user_agent", def.UserAgent)
	v.SetDefault("atomic", def.Atomic)
	v.SetDefault("progress_log", def.ProgressLog)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)

	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("batchdl")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "batchdl"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return cfg, nil
}

var logLevels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Validate checks the config for invalid values and returns all errors found.
func (c *Config) Validate() []error {
	var errs []error

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout %s must not be negative", c.Timeout))
	}

	if c.ItemTimeout < 0 {
		errs = append(errs, fmt.Errorf("item_timeout %s must not be negative", c.ItemTimeout))
	}

	if _, ok := logLevels[strings.ToLower(c.LogLevel)]; !ok {
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}

	return errs
}

// Level returns the slog level for LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	if lvl, ok := logLevels[strings.ToLower(c.LogLevel)]; ok {
		return lvl
	}
	return slog.LevelInfo
}
