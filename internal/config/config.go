package config

import (
	"fmt"
	"time"

	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppName         string        `env:"APP_NAME" envDefault:"PingPong Notifier"`
	AppEnv          string        `env:"APP_ENV" envDefault:"dev"`
	Port            int           `env:"PORT" envDefault:"8000"`
	DatabasePath    string        `env:"DATABASE_PATH" envDefault:"pingpong.db"`
	TZ              string        `env:"TZ" envDefault:"Europe/Athens"`
	FrontendOrigins []string      `env:"FRONTEND_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	NotifyTimeout   time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`

	Twilio Twilio
}

// Twilio holds the SMS provider settings. Either MessagingServiceSID or
// FromNumber must be set for sending to be enabled.
type Twilio struct {
	AccountSID          string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken           string `env:"TWILIO_AUTH_TOKEN"`
	MessagingServiceSID string `env:"TWILIO_MESSAGING_SERVICE_SID"`
	FromNumber          string `env:"TWILIO_FROM_NUMBER"`
	BaseURL             string `env:"TWILIO_BASE_URL" envDefault:"http://localhost:8000"`
	APIBaseURL          string `env:"TWILIO_API_BASE_URL" envDefault:"https://api.twilio.com"`
}

func (t Twilio) Configured() bool {
	return t.AccountSID != "" && t.AuthToken != "" && (t.MessagingServiceSID != "" || t.FromNumber != "")
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Location resolves TZ, the zone match times are rendered in.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ %q: %w", c.TZ, err)
	}
	return loc, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
