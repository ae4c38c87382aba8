package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds server configuration read from the environment.
type Config struct {
	ListenAddr      string        `env:"LISTEN_ADDR" envDefault:":8080"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	MaxInactivity   time.Duration `env:"MAX_INACTIVITY" envDefault:"30m"`
	DeleteWhenEmpty bool          `env:"DELETE_WHEN_EMPTY" envDefault:"true"`
	JoinCodeLength  int           `env:"JOIN_CODE_LENGTH" envDefault:"6"`
}

// Load reads configuration from the environment, after loading an
// optional .env file. A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
