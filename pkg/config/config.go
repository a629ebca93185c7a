package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Loaded once in the command layer and passed down explicitly.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Reference-data feeds
	NSE NSEConfig
	BSE BSEConfig

	// Outbound HTTP
	HTTP HTTPConfig

	// Seed inputs
	TaxonomyPath string
	MappingPath  string

	// Snapshot exports
	SnapshotDir string

	// Scan settings file (YAML)
	ScanConfigPath string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds SQLite configuration
type DatabaseConfig struct {
	Path  string
	Debug bool
}

// NSEConfig holds NSE archive feed configuration
type NSEConfig struct {
	EquityListURL string
	OnlySeriesEQ  bool
}

// BSEConfig holds BSE scrip master feed configuration
type BSEConfig struct {
	ScripMasterURL string
	Referer        string
}

// HTTPConfig holds outbound HTTP client configuration
type HTTPConfig struct {
	Timeout        time.Duration
	RequestsPerSec float64
}

// Load reads configuration from environment variables.
// Only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			Path:  getEnv("SMASSIST_DB_PATH", "data/smassist.db"),
			Debug: getEnvAsBool("SMASSIST_DB_DEBUG", false),
		},

		NSE: NSEConfig{
			EquityListURL: getEnv("SMASSIST_NSE_EQUITY_URL", "https://archives.nseindia.com/content/equities/EQUITY_L.csv"),
			OnlySeriesEQ:  getEnvAsBool("SMASSIST_NSE_ONLY_EQ", true),
		},

		BSE: BSEConfig{
			ScripMasterURL: getEnv("SMASSIST_BSE_SCRIP_URL", "https://api.bseindia.com/BseIndiaAPI/api/LitsOfScripCSVDownload/w?segment=Equity&status=&Group=&Scripcode="),
			Referer:        getEnv("SMASSIST_BSE_REFERER", "https://www.bseindia.com/corporates/List_Scrips.html"),
		},

		HTTP: HTTPConfig{
			Timeout:        getEnvAsDuration("SMASSIST_HTTP_TIMEOUT", "30s"),
			RequestsPerSec: getEnvAsFloat("SMASSIST_HTTP_RPS", 2.0),
		},

		TaxonomyPath: getEnv("SMASSIST_TAXONOMY", "config/groww_taxonomy.json"),
		MappingPath:  getEnv("SMASSIST_MAPPING", "config/industry_mapping.csv"),
		SnapshotDir:  getEnv("SMASSIST_SNAPSHOT_DIR", "data/snapshots"),

		ScanConfigPath: getEnv("SMASSIST_SCAN_CONFIG", "config/scan.yaml"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("SMASSIST_DB_PATH is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.HTTP.RequestsPerSec <= 0 {
		return fmt.Errorf("SMASSIST_HTTP_RPS must be positive")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
