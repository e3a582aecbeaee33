package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/japaniel/wicbow/pkg/corpus"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultHomonyms are the lemmas of the validated evaluation corpus.
var DefaultHomonyms = []string{"klop", "list", "postaviti", "prst", "surov", "tema", "tip"}

// Config holds the settings of a scoring run.
type Config struct {
	Window     int     `yaml:"window" toml:"window"`
	Threshold  float64 `yaml:"threshold" toml:"threshold"`
	ZeroPolicy string  `yaml:"zero_policy" toml:"zero_policy"`
	// Normalize selects a Unicode normalization form (NFC, NFD) applied to
	// lemmas and sentences after loading. Empty disables normalization.
	Normalize string `yaml:"normalize" toml:"normalize"`

	DataFile           string   `yaml:"data_file" toml:"data_file"`
	ResultsFile        string   `yaml:"results_file" toml:"results_file"`
	PartResultsFile    string   `yaml:"part_results_file" toml:"part_results_file"`
	ValidatedCorpusDir string   `yaml:"validated_corpus_dir" toml:"validated_corpus_dir"`
	Homonyms           []string `yaml:"homonyms" toml:"homonyms"`
	ReportFile         string   `yaml:"report_file" toml:"report_file"`
	MetricsFile        string   `yaml:"metrics_file" toml:"metrics_file"`

	DBPath      string `yaml:"db_path" toml:"db_path"`
	DBDriver    string `yaml:"db_driver" toml:"db_driver"`
	DBBatchSize int    `yaml:"db_batch_size" toml:"db_batch_size"`

	LogLevel  string `yaml:"log_level" toml:"log_level"`
	LogFormat string `yaml:"log_format" toml:"log_format"`
	Verbose   bool   `yaml:"verbose" toml:"verbose"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	cfg := Config{Window: -1, Threshold: -1}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields. Window and Threshold are only replaced
// when negative, since zero is a meaningful value for both.
func (c *Config) ApplyDefaults() {
	if c.Window < 0 {
		c.Window = 2
	}
	if c.Threshold < 0 {
		c.Threshold = 0.6
	}
	if c.ZeroPolicy == "" {
		c.ZeroPolicy = "different"
	}
	if c.DataFile == "" {
		c.DataFile = filepath.Join("preprocess", "preprocessed_data.json")
	}
	if c.ResultsFile == "" {
		c.ResultsFile = "bow_corpus.json"
	}
	if c.PartResultsFile == "" {
		c.PartResultsFile = "bow_corpus_part.json"
	}
	if c.ValidatedCorpusDir == "" {
		c.ValidatedCorpusDir = "validated_corpus"
	}
	if len(c.Homonyms) == 0 {
		c.Homonyms = append([]string(nil), DefaultHomonyms...)
	}
	if c.DBDriver == "" {
		c.DBDriver = "sqlite3"
	}
	if c.DBBatchSize <= 0 {
		c.DBBatchSize = 100
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Window < 0 {
		return fmt.Errorf("window must be non-negative, got %d", c.Window)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0, 1], got %v", c.Threshold)
	}
	switch c.ZeroPolicy {
	case "different", "same":
	default:
		return fmt.Errorf("zero_policy must be \"different\" or \"same\", got %q", c.ZeroPolicy)
	}
	if _, _, err := corpus.ParseForm(c.Normalize); err != nil {
		return err
	}
	switch c.DBDriver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("db_driver must be \"sqlite3\" or \"sqlite\", got %q", c.DBDriver)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be \"text\" or \"json\", got %q", c.LogFormat)
	}
	return nil
}

// Load reads the configuration file at path, applies environment overrides
// and defaults, and validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Config{Window: -1, Threshold: -1}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := decode(path, data, &cfg); err != nil {
				return cfg, err
			}
		}
	}
	applyEnv(&cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode yaml config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode toml config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Window = getEnvAsInt("WICBOW_WINDOW", cfg.Window)
	cfg.Threshold = getEnvAsFloat("WICBOW_THRESHOLD", cfg.Threshold)
	cfg.DBPath = getEnv("WICBOW_DB_PATH", cfg.DBPath)
	cfg.LogLevel = getEnv("WICBOW_LOG_LEVEL", cfg.LogLevel)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}
