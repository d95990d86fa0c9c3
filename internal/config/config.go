package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DBPath         string        `env:"TAREASD_DB" envDefault:"tareasd.db"`
	HTTPPort       int           `env:"TAREASD_PORT" envDefault:"8080"`
	ReevalInterval time.Duration `env:"TAREASD_REEVAL_INTERVAL" envDefault:"60s"`
	DueSoonWindow  time.Duration `env:"TAREASD_DUE_SOON_WINDOW" envDefault:"30m"`
	LocalUser      string        `env:"TAREASD_USER"`
	LogLevel       string        `env:"TAREASD_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment, first folding in a local
// .env file when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return c, nil
}
