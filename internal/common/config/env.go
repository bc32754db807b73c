package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// Config represents the application configuration
type Config struct {
	// AWS-specific configuration
	AWSRegion string

	// Ledger store. DatabaseSecretID wins over DatabaseURL when both are set
	DatabaseURL      string
	DatabaseSecretID string

	// Import session staging; an empty table keeps sessions in memory
	ImportSessionTable string
	ImportSessionTTL   time.Duration

	Environment string
	LogLevel    string

	RootsFile string
	Roots     ledger.Roots
}

// LoadFromEnv loads the configuration from environment variables, reading
// a .env file first when one exists
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DatabaseSecretID:   os.Getenv("DATABASE_SECRET_ID"),
		ImportSessionTable: os.Getenv("IMPORT_SESSION_TABLE"),
		RootsFile:          os.Getenv("LEDGER_ROOTS_FILE"),
	}

	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "dev" // Default to dev environment
	}

	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		if cfg.IsProd() {
			cfg.LogLevel = "info"
		} else {
			cfg.LogLevel = "debug"
		}
	}

	cfg.AWSRegion = os.Getenv("AWS_REGION")
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = "ap-northeast-1" // Default fallback
	}

	cfg.ImportSessionTTL = 24 * time.Hour
	if v := os.Getenv("IMPORT_SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("IMPORT_SESSION_TTL must be a positive duration, got %q", v)
		}
		cfg.ImportSessionTTL = ttl
	}

	roots, err := LoadRoots(cfg.RootsFile)
	if err != nil {
		return nil, err
	}
	cfg.Roots = roots

	return cfg, nil
}

// LoadRoots reads the reserved root category ids from a YAML file. Keys
// missing from the file keep their defaults; an empty path returns the
// defaults.
func LoadRoots(path string) (ledger.Roots, error) {
	roots := ledger.DefaultRoots()
	if path == "" {
		return roots, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return roots, fmt.Errorf("failed to read roots file: %w", err)
	}
	if err := yaml.Unmarshal(data, &roots); err != nil {
		return roots, fmt.Errorf("failed to parse roots file %s: %w", path, err)
	}
	if err := validateRoots(roots); err != nil {
		return roots, err
	}
	return roots, nil
}

func validateRoots(r ledger.Roots) error {
	if r.Expense <= 0 || r.Income <= 0 || r.Correction <= 0 || r.Transfer < 0 {
		return errors.New("expense, income and correction roots need positive ids")
	}
	seen := map[int64]bool{}
	for _, id := range []int64{r.Expense, r.Income, r.Correction, r.Transfer} {
		if id == 0 {
			continue
		}
		if seen[id] {
			return fmt.Errorf("root id %d is used twice", id)
		}
		seen[id] = true
	}
	return nil
}

// UsesPostgres reports whether a database is configured
func (c *Config) UsesPostgres() bool {
	return c.DatabaseURL != "" || c.DatabaseSecretID != ""
}

func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
