package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v2"
)

// Config represents the complete loader configuration
type Config struct {
	Google  GoogleConfig  `yaml:"google" envconfig:"GOOGLE"`
	Load    LoadConfig    `yaml:"load" envconfig:"LOAD"`
	Periods PeriodsConfig `yaml:"periods" envconfig:"PERIODS"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
}

// GoogleConfig contains Drive/Sheets access configuration.
// Either FolderID or at least one explicit SheetID must be set.
type GoogleConfig struct {
	CredentialsFile string   `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	FolderID        string   `yaml:"folder_id" envconfig:"FOLDER_ID"`
	SheetIDs        []string `yaml:"sheet_ids" envconfig:"SHEET_IDS"`
	Recursive       bool     `yaml:"recursive" envconfig:"RECURSIVE" default:"true"`
	RateLimitRPS    float64  `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"5" validate:"gt=0"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"5" validate:"gt=0"`
}

// Limiter builds the shared rate limiter for Drive and Sheets reads.
func (g GoogleConfig) Limiter() *rate.Limiter {
	rps := g.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	burst := g.RateLimitBurst
	if burst < 1 {
		burst = 5
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// LoadConfig tunes a refresh cycle.
type LoadConfig struct {
	RetryAttempts int           `yaml:"retry_attempts" envconfig:"RETRY_ATTEMPTS" default:"3" validate:"min=1,max=10"`
	RetryBackoff  time.Duration `yaml:"retry_backoff" envconfig:"RETRY_BACKOFF" default:"1500ms"`
	IgnoreSheets  string        `yaml:"ignore_sheets" envconfig:"IGNORE_SHEETS" default:"(?i)^(resumo|sumario|pivot|dashboard|dash)"`
	MaxErrors     int           `yaml:"max_errors" envconfig:"MAX_ERRORS" default:"50" validate:"min=1"`
}

// PeriodConfig names one aggregation period as a set of calendar months.
type PeriodConfig struct {
	Name   string `yaml:"name"`
	Months []int  `yaml:"months" validate:"dive,min=1,max=12"`
}

// PeriodsConfig defines the aggregation period set. When IncludeOther is set,
// records matching no period are bucketed under OtherName instead of dropped.
type PeriodsConfig struct {
	Periods      []PeriodConfig `yaml:"periods"`
	IncludeOther bool           `yaml:"include_other" envconfig:"INCLUDE_OTHER"`
	OtherName    string         `yaml:"other_name" envconfig:"OTHER_NAME" default:"outros"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/loader.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	CacheDir string `yaml:"cache_dir" envconfig:"CACHE_DIR" default:"data/cache"`
	StoreDir string `yaml:"store_dir" envconfig:"STORE_DIR" default:"data_cache"`
	LogsDir  string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load loads configuration from environment variables and an optional YAML file.
// Environment variables take precedence over the file.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("QUASAR", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := getConfigFilePath()
	if configFile != "" {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileCfg, cfg)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := cfg.ensureDirectories(); err != nil {
		return nil, fmt.Errorf("path setup failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Google.CredentialsFile == "" {
		envConfig.Google.CredentialsFile = fileConfig.Google.CredentialsFile
	}
	if envConfig.Google.FolderID == "" {
		envConfig.Google.FolderID = fileConfig.Google.FolderID
	}
	if len(envConfig.Google.SheetIDs) == 0 {
		envConfig.Google.SheetIDs = fileConfig.Google.SheetIDs
	}
	if len(envConfig.Periods.Periods) == 0 {
		envConfig.Periods.Periods = fileConfig.Periods.Periods
	}
	if fileConfig.Logging.FilePath != "" && envConfig.Logging.FilePath == "logs/loader.log" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if fileConfig.Paths.CacheDir != "" && envConfig.Paths.CacheDir == "data/cache" {
		envConfig.Paths.CacheDir = fileConfig.Paths.CacheDir
	}
	if fileConfig.Paths.StoreDir != "" && envConfig.Paths.StoreDir == "data_cache" {
		envConfig.Paths.StoreDir = fileConfig.Paths.StoreDir
	}

	return envConfig
}

// applyDefaults fills values envconfig defaults cannot express.
func (c *Config) applyDefaults() {
	if len(c.Periods.Periods) == 0 {
		c.Periods.Periods = DefaultPeriods()
	}
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
}

// DefaultPeriods returns the standard two-period split used by the 2024
// sales campaign reports.
func DefaultPeriods() []PeriodConfig {
	return []PeriodConfig{
		{Name: "mar-mai/2024", Months: []int{3, 4, 5}},
		{Name: "jun-ago/2024", Months: []int{6, 7, 8}},
	}
}

// Configured reports whether the loader has something to load: a folder id
// or at least one explicit sheet id.
func (c *Config) Configured() bool {
	return c.Google.FolderID != "" || len(c.Google.SheetIDs) > 0
}

// validate validates the configuration
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	for _, p := range c.Periods.Periods {
		if p.Name == "" {
			return fmt.Errorf("period with months %v has no name", p.Months)
		}
		if len(p.Months) == 0 {
			return fmt.Errorf("period %q has no months", p.Name)
		}
	}
	return nil
}

// ensureDirectories creates the cache, store and logs directories.
func (c *Config) ensureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.StoreDir, c.Paths.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if c.Logging.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.FilePath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Google: GoogleConfig{
			Recursive:      true,
			RateLimitRPS:   5,
			RateLimitBurst: 5,
		},
		Load: LoadConfig{
			RetryAttempts: 3,
			RetryBackoff:  1500 * time.Millisecond,
			IgnoreSheets:  "(?i)^(resumo|sumario|pivot|dashboard|dash)",
			MaxErrors:     50,
		},
		Periods: PeriodsConfig{
			Periods:   DefaultPeriods(),
			OtherName: "outros",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/loader.log",
		},
		Paths: PathsConfig{
			CacheDir: "data/cache",
			StoreDir: "data_cache",
			LogsDir:  "logs",
		},
	}
}
