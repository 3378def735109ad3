package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	StudyIdentifier   string `mapstructure:"STUDY_IDENTIFIER"`
	StudyKey          string `mapstructure:"STUDY_KEY"`
	BloomFilterConfig string `mapstructure:"BLOOM_FILTER_CONFIG"`
	FieldProfile      string `mapstructure:"FIELD_PROFILE"`
	MPIClient         string `mapstructure:"MPI_CLIENT"`
	Workers           int    `mapstructure:"WORKERS"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32  `mapstructure:"DB_MIN_CONNS"`
}

var keys = []string{
	"ENV",
	"LOG_LEVEL",
	"STUDY_IDENTIFIER",
	"STUDY_KEY",
	"BLOOM_FILTER_CONFIG",
	"FIELD_PROFILE",
	"MPI_CLIENT",
	"WORKERS",
	"DATABASE_URL",
	"DB_MAX_CONNS",
	"DB_MIN_CONNS",
}

// Load reads .env from the working directory, if present, and the
// environment. Environment variables win.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MPI_CLIENT", "stub")
	v.SetDefault("WORKERS", 4)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.StudyKey = strings.TrimSpace(cfg.StudyKey)
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level parses LOG_LEVEL.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// Validate checks the settings every command depends on. Settings needed
// only by some commands are checked by RequireStudy and friends.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS (%d), got %d", c.DBMaxConns, c.DBMinConns)
	}
	if c.StudyKey != "" {
		if _, err := c.StudyKeyBytes(); err != nil {
			return err
		}
	}
	return nil
}

// StudyKeyBytes decodes STUDY_KEY, a 64 character hex AES-256 key.
func (c *Config) StudyKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.StudyKey)
	if err != nil {
		return nil, fmt.Errorf("STUDY_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("STUDY_KEY must be 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	return key, nil
}

// RequireStudy checks the settings of the pseudonym commands.
func (c *Config) RequireStudy() error {
	if c.StudyIdentifier == "" {
		return fmt.Errorf("STUDY_IDENTIFIER is required")
	}
	if c.StudyKey == "" {
		return fmt.Errorf("STUDY_KEY is required")
	}
	_, err := c.StudyKeyBytes()
	return err
}

// RequireBloomFilterConfig checks the settings of the rbf command.
func (c *Config) RequireBloomFilterConfig() error {
	if c.BloomFilterConfig == "" {
		return fmt.Errorf("BLOOM_FILTER_CONFIG is required")
	}
	if c.MPIClient == "" {
		return fmt.Errorf("MPI_CLIENT is required")
	}
	return nil
}

// RequireDatabase checks the settings of the migrate command.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}
