package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/folio/internal/platform/config"
)

// EnvPrefix prefixes every folio environment variable.
const EnvPrefix = "FOLIO_"

// Config holds the settings shared by the server and cmsctl.
type Config struct {
	DBPath           string `env:"DB_PATH" envDefault:"data/folio.db"`
	HTTPAddr         string `env:"HTTP_ADDR" envDefault:":8080"`
	SiteRootURL      string `env:"SITE_ROOT_URL" envDefault:"http://localhost:8080"`
	DefaultFromEmail string `env:"DEFAULT_FROM_EMAIL" envDefault:"webmaster@localhost"`

	SMTPAddr     string `env:"SMTP_ADDR"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	NotificationIncludeSuperusers bool   `env:"NOTIFICATION_INCLUDE_SUPERUSERS" envDefault:"true"`
	NotificationLanguage          string `env:"NOTIFICATION_LANGUAGE" envDefault:"en"`

	JWTSecret          string        `env:"JWT_SECRET"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	MaintenanceTimeout time.Duration `env:"MAINTENANCE_TIMEOUT" envDefault:"10m"`
}

// LoadConfig reads FOLIO_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnvWithPrefix(&cfg, EnvPrefix); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validateServer checks the settings only the HTTP server needs.
func (c Config) validateServer() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New(EnvPrefix + "JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("%sJWT_SECRET must be at least 16 bytes", EnvPrefix)
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New(EnvPrefix + "HTTP_ADDR is required")
	}
	return nil
}
