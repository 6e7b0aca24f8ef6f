package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "github.com/WilliamKTurner/openhab-addons/backend/libs/config"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// Config defines hub configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	InfluxDB   InfluxConfig     `yaml:"influxdb"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Location   LocationConfig   `yaml:"location"`
	HTTPClient HTTPClientConfig `yaml:"httpClient"`
	Things     []ThingConfig    `yaml:"things" env:"-"`
}

type HTTPConfig struct {
	Port string `yaml:"port" env:"HUB_HTTP_PORT"`
}

type AuthConfig struct {
	User         string        `yaml:"user" env:"HUB_ADMIN_USER"`
	PasswordHash string        `yaml:"passwordHash" env:"HUB_ADMIN_PASSWORD_HASH"`
	JWTSecret    string        `yaml:"jwtSecret" env:"HUB_JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"tokenTtl" env:"HUB_JWT_TTL"`
}

type DatabaseConfig struct {
	DSN          string `yaml:"dsn" env:"HUB_DATABASE_DSN"`
	MaxOpenConns int    `yaml:"maxOpenConns" env:"HUB_DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" env:"HUB_DATABASE_MAX_IDLE_CONNS"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"HUB_REDIS_ADDR"`
	Password string        `yaml:"password" env:"HUB_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"HUB_REDIS_DB"`
	TokenTTL time.Duration `yaml:"tokenTtl" env:"HUB_REDIS_TOKEN_TTL"`
}

type InfluxConfig struct {
	URL    string `yaml:"url" env:"HUB_INFLUXDB_URL"`
	Token  string `yaml:"token" env:"HUB_INFLUXDB_TOKEN"`
	Org    string `yaml:"org" env:"HUB_INFLUXDB_ORG"`
	Bucket string `yaml:"bucket" env:"HUB_INFLUXDB_BUCKET"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"HUB_KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"HUB_KAFKA_TOPIC"`
}

// LocationConfig is the home location used by discovery and forecasts.
type LocationConfig struct {
	Latitude  float64 `yaml:"latitude" env:"HUB_LATITUDE"`
	Longitude float64 `yaml:"longitude" env:"HUB_LONGITUDE"`
	TimeZone  string  `yaml:"timeZone" env:"HUB_TIME_ZONE"`
	Language  string  `yaml:"language" env:"HUB_LANGUAGE"`
}

type HTTPClientConfig struct {
	TimeoutSeconds int `yaml:"timeoutSeconds" env:"HUB_HTTP_TIMEOUT"`
}

// ThingConfig is one configured thing.
type ThingConfig struct {
	UID    string         `yaml:"uid"`
	Label  string         `yaml:"label"`
	Bridge string         `yaml:"bridge"`
	Config map[string]any `yaml:"config"`
}

// Load configuration via shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns configuration with defaults applied.
func Default() *Config {
	return &Config{
		HTTP:       HTTPConfig{Port: "8080"},
		Auth:       AuthConfig{User: "admin", TokenTTL: 24 * time.Hour},
		Kafka:      KafkaConfig{Topic: "hub.events"},
		Location:   LocationConfig{TimeZone: "UTC", Language: "en"},
		HTTPClient: HTTPClientConfig{TimeoutSeconds: 10},
	}
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("config: jwt secret required")
	}
	if _, err := time.LoadLocation(c.Location.TimeZone); err != nil {
		return fmt.Errorf("config: time zone: %w", err)
	}
	if _, err := c.ThingList(); err != nil {
		return err
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// HTTPTimeout returns http client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTPClient.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HTTPClient.TimeoutSeconds) * time.Second
}

// Zone returns the configured time zone, UTC when invalid.
func (c *Config) Zone() *time.Location {
	loc, err := time.LoadLocation(c.Location.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Home returns the home location.
func (c *Config) Home() thing.Point {
	return thing.Point{Lat: c.Location.Latitude, Lon: c.Location.Longitude}
}

// ThingList converts thing definitions. UIDs must be unique.
func (c *Config) ThingList() ([]thing.Thing, error) {
	seen := make(map[string]struct{}, len(c.Things))
	result := make([]thing.Thing, 0, len(c.Things))
	for i, tc := range c.Things {
		uid, err := thing.ParseUID(tc.UID)
		if err != nil {
			return nil, fmt.Errorf("config: things[%d]: %w", i, err)
		}
		key := uid.String()
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("config: things[%d]: duplicate uid %s", i, key)
		}
		seen[key] = struct{}{}
		if tc.Bridge != "" {
			if _, err := thing.ParseUID(tc.Bridge); err != nil {
				return nil, fmt.Errorf("config: things[%d] bridge: %w", i, err)
			}
		}
		label := tc.Label
		if label == "" {
			label = key
		}
		result = append(result, thing.Thing{UID: uid, Label: label, BridgeUID: tc.Bridge, Config: tc.Config})
	}
	return result, nil
}
