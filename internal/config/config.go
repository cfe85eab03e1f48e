// Package config handles configuration loading for bondspread.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/openbondlab/bondspread/pkg/utils"
)

// Config represents the complete application configuration.
type Config struct {
	Sample  SampleConfig  `mapstructure:"sample"  yaml:"sample"`
	Paths   PathsConfig   `mapstructure:"paths"   yaml:"paths"`
	Sources SourcesConfig `mapstructure:"sources" yaml:"sources"`
	WRDS    WRDSConfig    `mapstructure:"wrds"    yaml:"wrds"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// SampleConfig bounds the replication sample.
type SampleConfig struct {
	StartDate string `mapstructure:"start_date" yaml:"start_date"` // YYYY-MM-DD
	EndDate   string `mapstructure:"end_date"   yaml:"end_date"`
}

// PathsConfig holds the data and output directories.
type PathsConfig struct {
	DataDir   string `mapstructure:"data_dir"   yaml:"data_dir"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// SourcesConfig holds the upstream dataset URLs.
type SourcesConfig struct {
	TreasuryURL string `mapstructure:"treasury_url" yaml:"treasury_url"`
	WRDSURL     string `mapstructure:"wrds_url"     yaml:"wrds_url"`
	FactorsURL  string `mapstructure:"factors_url"  yaml:"factors_url"`
}

// WRDSConfig holds WRDS account credentials for the bond returns extract.
// The password is only ever read from the environment.
type WRDSConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"-"        yaml:"-"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.bondspread/config.yaml (home directory)
//  3. /etc/bondspread/config.yaml (system)
//
// Environment variables override config file values.
// Format: BONDSPREAD_<SECTION>_<KEY>, e.g. BONDSPREAD_PATHS_DATA_DIR.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".bondspread"))
	v.AddConfigPath("/etc/bondspread")

	v.SetEnvPrefix("BONDSPREAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — fine, use defaults + env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("BONDSPREAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks date bounds and directory settings.
func (c *Config) Validate() error {
	start, err := utils.ParseISODate(c.Sample.StartDate)
	if err != nil {
		return fmt.Errorf("sample.start_date: %w", err)
	}
	end, err := utils.ParseISODate(c.Sample.EndDate)
	if err != nil {
		return fmt.Errorf("sample.end_date: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("sample.end_date %s must be after start_date %s", c.Sample.EndDate, c.Sample.StartDate)
	}
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}
	if c.Paths.OutputDir == "" {
		return fmt.Errorf("paths.output_dir must not be empty")
	}
	return nil
}

// SampleRange returns the parsed [start, end] sample bounds.
func (c *Config) SampleRange() (time.Time, time.Time) {
	start, _ := utils.ParseISODate(c.Sample.StartDate)
	end, _ := utils.ParseISODate(c.Sample.EndDate)
	return start, end
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Sample defaults match the He-Kelly-Manela monthly factors coverage.
	v.SetDefault("sample.start_date", "2002-07-01")
	v.SetDefault("sample.end_date", "2023-12-31")

	v.SetDefault("paths.data_dir", "./data")
	v.SetDefault("paths.output_dir", "./output")

	v.SetDefault("sources.treasury_url",
		"https://openbondassetpricing.com/wp-content/uploads/2024/06/bondret_treasury.csv")
	v.SetDefault("sources.wrds_url",
		"https://wrds-api.wharton.upenn.edu/data-query/wrdsapps/bondret")
	v.SetDefault("sources.factors_url",
		"https://asafmanela.github.io/papers/hkm/intermediarycapitalrisk/He_Kelly_Manela_Factors.zip")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if u := os.Getenv("BONDSPREAD_WRDS_USERNAME"); u != "" {
		cfg.WRDS.Username = u
	}
	if p := os.Getenv("BONDSPREAD_WRDS_PASSWORD"); p != "" {
		cfg.WRDS.Password = p
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
