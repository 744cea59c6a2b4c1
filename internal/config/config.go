package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults for optional settings.
const (
	DefaultLookbackDays = 12
	DefaultRootFolder   = "NOMINAS"
	DefaultAccount      = "default"
)

// Config is the explicit configuration value handed to the pipeline and the
// service constructors.
type Config struct {
	// Sender is the address payroll mail arrives from. Required.
	Sender string `mapstructure:"sender"`

	// LookbackDays is how many days back the mailbox search reaches.
	LookbackDays int `mapstructure:"lookback_days"`

	// ZipPassword opens protected attachments. Optional; empty attempts
	// extraction without a password.
	ZipPassword string `mapstructure:"zip_password"`

	// RootFolder is the destination folder name in Drive.
	RootFolder string `mapstructure:"root_folder"`

	// Account selects which stored Google token to use.
	Account string `mapstructure:"account"`
}

// Load assembles the configuration. flags may be nil; when given, set flags
// take precedence over environment variables and the config file.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Every key needs a default registered so Unmarshal also sees values
	// that arrive via environment variables only.
	v.SetDefault("sender", "")
	v.SetDefault("zip_password", "")
	v.SetDefault("lookback_days", DefaultLookbackDays)
	v.SetDefault("root_folder", DefaultRootFolder)
	v.SetDefault("account", DefaultAccount)

	v.SetEnvPrefix("NOMINAS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "nominas"))
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		// Flag names use dashes, config keys use underscores.
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the assembled configuration for the settings a run cannot
// work without.
func (c *Config) Validate() error {
	if c.Sender == "" {
		return fmt.Errorf("sender is required (flag --sender, env NOMINAS_SENDER, or config file)")
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("lookback_days must be positive, got %d", c.LookbackDays)
	}
	if c.RootFolder == "" {
		return fmt.Errorf("root_folder must not be empty")
	}
	return nil
}
