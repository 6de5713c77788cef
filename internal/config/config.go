package config

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type Config struct {
	Port          string `mapstructure:"PORT"`
	Env           string `mapstructure:"ENV"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`
	FacilityID    string `mapstructure:"FACILITY_ID"`
	GenBatchSize  int    `mapstructure:"GEN_BATCH_SIZE"`
	GenSeed       int64  `mapstructure:"GEN_SEED"`
	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
	MaxBodySize   string `mapstructure:"MAX_BODY_SIZE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("GEN_BATCH_SIZE", 100)
	v.SetDefault("GEN_SEED", 0)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("MAX_BODY_SIZE", "1M")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("FACILITY_ID")
	v.BindEnv("GEN_BATCH_SIZE")
	v.BindEnv("GEN_SEED")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("MAX_BODY_SIZE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. FACILITY_ID, when
// set, must be a UUID; the generator refuses to run with a non-positive
// batch size.
func (c *Config) Validate() error {
	if c.FacilityID != "" {
		if _, err := uuid.Parse(c.FacilityID); err != nil {
			return fmt.Errorf("FACILITY_ID is not a valid UUID: %w", err)
		}
	}
	if c.GenBatchSize <= 0 {
		return fmt.Errorf("GEN_BATCH_SIZE must be positive, got %d", c.GenBatchSize)
	}
	return nil
}
