// /internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config is the process configuration read from the environment.
type Config struct {
	Network     string `env:"RELAY_NETWORK" envDefault:"default"`
	StoragePath string `env:"STORAGE_PATH" envDefault:"datastore.json"`
	PluginsFile string `env:"PLUGINS_FILE"`

	IRC     IRC
	Discord Discord

	MetricsAddr string        `env:"METRICS_ADDR"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	SendRate    float64       `env:"SEND_RATE" envDefault:"2"`

	// WebAllowPrivate lets chat commands fetch loopback and private addresses.
	WebAllowPrivate bool `env:"WEB_ALLOW_PRIVATE" envDefault:"false"`
}

type IRC struct {
	Server   string   `env:"IRC_SERVER"`
	TLS      bool     `env:"IRC_TLS" envDefault:"false"`
	Nick     string   `env:"IRC_NICK" envDefault:"relaybot"`
	User     string   `env:"IRC_USER" envDefault:"relaybot"`
	Name     string   `env:"IRC_NAME" envDefault:"relaybot"`
	Pass     string   `env:"IRC_PASS"`
	Channels []string `env:"IRC_CHANNELS" envSeparator:","`
}

// Enabled reports whether an IRC server is configured.
func (c IRC) Enabled() bool { return c.Server != "" }

type Discord struct {
	Token string `env:"DISCORD_TOKEN"`
}

// Enabled reports whether a Discord token is configured.
func (c Discord) Enabled() bool { return c.Token != "" }

// Load reads files (".env" when none are given) into the environment and
// parses it. A missing file only logs; the system environment is used alone.
func Load(log *zap.Logger, files ...string) (*Config, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
		log.Info("No .env file found, falling back to system environment variables")
	}
	return Parse()
}

// Parse reads the configuration from the current environment.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks what serve needs: at least one chat network.
func (c *Config) Validate() error {
	if !c.IRC.Enabled() && !c.Discord.Enabled() {
		return errors.New("neither IRC_SERVER nor DISCORD_TOKEN is set")
	}
	if c.SendRate <= 0 {
		return fmt.Errorf("SEND_RATE must be positive, got %v", c.SendRate)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.HTTPTimeout)
	}
	return nil
}
