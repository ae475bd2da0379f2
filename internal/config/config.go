package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/kalambet/reportlocator/internal/locator"
)

type Config struct {
	Server  ServerConfig
	Mongo   MongoConfig
	Locator LocatorConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type MongoConfig struct {
	URI            string
	Collection     string
	ConnectTimeout string
}

type LocatorConfig struct {
	Strategy    string
	Parallelism int
	Timeout     string
}

type StorageConfig struct {
	DataDir        string
	HistoryEnabled bool
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "",
			Port: 5000,
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Collection:     "reports",
			ConnectTimeout: "10s",
		},
		Locator: LocatorConfig{
			Strategy:    string(locator.Sequential),
			Parallelism: 4,
			Timeout:     "30s",
		},
		Storage: StorageConfig{
			DataDir:        defaultDataDir(),
			HistoryEnabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the YAML config file and environment
// variables.
//
// The file is ConfigPath(): $RLOC_CONFIG, or config.yaml under the user
// config directory. Environment variables (RLOC_*) override file values.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("missing required config: mongo.uri (set RLOC_MONGO_URI)")
	}
	if _, err := locator.ParseStrategy(c.Locator.Strategy); err != nil {
		return fmt.Errorf("invalid config: locator.strategy: %w", err)
	}
	if _, err := parseDuration("mongo.connect_timeout", c.Mongo.ConnectTimeout); err != nil {
		return err
	}
	if _, err := parseDuration("locator.timeout", c.Locator.Timeout); err != nil {
		return err
	}
	return nil
}

// ConnectTimeout returns mongo.connect_timeout as a duration.
func (c Config) ConnectTimeout() time.Duration {
	d, _ := parseDuration("mongo.connect_timeout", c.Mongo.ConnectTimeout)
	return d
}

// LocateTimeout returns locator.timeout as a duration. Zero disables the
// deadline.
func (c Config) LocateTimeout() time.Duration {
	d, _ := parseDuration("locator.timeout", c.Locator.Timeout)
	return d
}

// Strategy returns the validated scan strategy.
func (c Config) Strategy() locator.Strategy {
	s, err := locator.ParseStrategy(c.Locator.Strategy)
	if err != nil {
		return locator.Sequential
	}
	return s
}

// Addr is the host:port the HTTP server listens on. An empty host listens
// on every interface.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// BaseURL is where a local client reaches the server. Wildcard hosts are
// dialled on loopback.
func (c Config) BaseURL() string {
	host := c.Server.Host
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Server.Port))
}

func parseDuration(key, v string) (time.Duration, error) {
	if v == "" || v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid config: %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid config: %s must not be negative", key)
	}
	return d, nil
}
