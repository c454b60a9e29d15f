// Package config loads the application configuration from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration.
type Config struct {
	HTTPPort        int           `envconfig:"HTTP_PORT" default:"3000"`
	DBPath          string        `envconfig:"DB_PATH" default:"chat.db"`
	NATSURL         string        `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	FileBucket      string        `envconfig:"FILE_BUCKET" default:"attachments"`
	MaxFileSize     int64         `envconfig:"MAX_FILE_SIZE" default:"10485760"`
	MessageTTL      time.Duration `envconfig:"MESSAGE_TTL" default:"24h"`
	SweepInterval   time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`
	CORSOrigins     string        `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
