package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

const Prefix = "SMACK"

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	DBPath    string `envconfig:"DB_PATH" default:"./smack.db"`
	PublicURL string `envconfig:"PUBLIC_URL" default:"http://localhost:8080"`
	JWTSecret string `envconfig:"JWT_SECRET" default:"smack-secret-key-change-in-production"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// SaveTimeout bounds a webhook form save. Zero disables the bound.
	SaveTimeout time.Duration `envconfig:"SAVE_TIMEOUT" default:"30s"`
	FormIdleTTL time.Duration `envconfig:"FORM_IDLE_TTL" default:"30m"`
}

// Load reads SMACK_* environment variables over the defaults.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
