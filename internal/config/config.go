// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App          AppConfig          `koanf:"app"`
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Redis        RedisConfig        `koanf:"redis"`
	Homeserver   HomeserverConfig   `koanf:"homeserver"`
	Admin        AdminConfig        `koanf:"admin"`
	Registration RegistrationConfig `koanf:"registration"`
	RateLimit    RateLimitConfig    `koanf:"rate_limit"`
	CORS         CORSConfig         `koanf:"cors"`
	Log          LogConfig          `koanf:"log"`
	Otel         OtelConfig         `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

// HomeserverConfig points at the upstream homeserver's admin registration
// endpoint. SharedSecret must match registration_shared_secret in the
// homeserver's own configuration.
type HomeserverConfig struct {
	URL            string        `koanf:"url"`
	ServerName     string        `koanf:"server_name"`
	SharedSecret   string        `koanf:"shared_secret"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type AdminConfig struct {
	Secret string `koanf:"secret"`
}

type RegistrationConfig struct {
	PasswordMinLength int      `koanf:"password_min_length"`
	UsernameDenylist  []string `koanf:"username_denylist"`
	UsernameAllowlist []string `koanf:"username_allowlist"`
	IPLogging         bool     `koanf:"ip_logging"`
	TokenWordCount    int      `koanf:"token_word_count"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "gatekeeper",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             5000,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"homeserver.request_timeout": "30s",

		"registration.password_min_length": 8,
		"registration.ip_logging":          false,
		"registration.token_word_count":    3,

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": false,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "gatekeeper",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":               "database.url",
	"REDIS_URL":                  "redis.url",
	"ENVIRONMENT":                "app.environment",
	"HOST":                       "server.host",
	"PORT":                       "server.port",
	"LOG_LEVEL":                  "log.level",
	"LOG_FORMAT":                 "log.format",
	"HOMESERVER_URL":             "homeserver.url",
	"HOMESERVER_NAME":            "homeserver.server_name",
	"REGISTRATION_SHARED_SECRET": "homeserver.shared_secret",
	"ADMIN_SECRET":               "admin.secret",
	"PASSWORD_MIN_LENGTH":        "registration.password_min_length",
	"IP_LOGGING":                 "registration.ip_logging",
	"RATE_LIMIT_REQUESTS":        "rate_limit.requests",
	"RATE_LIMIT_WINDOW":          "rate_limit.window",
	"RATE_LIMIT_BURST":           "rate_limit.burst",
	"OTEL_ENDPOINT":              "otel.endpoint",
	"OTEL_SERVICE_NAME":          "otel.service_name",
	"OTEL_ENABLED":               "otel.enabled",
	"OTEL_INSECURE":              "otel.insecure",
	"OTEL_SAMPLE_RATE":           "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Homeserver.URL == "" {
		return fmt.Errorf("HOMESERVER_URL is required")
	}

	if c.Homeserver.ServerName == "" {
		return fmt.Errorf("HOMESERVER_NAME is required")
	}

	if c.Homeserver.SharedSecret == "" {
		return fmt.Errorf("REGISTRATION_SHARED_SECRET is required")
	}

	if c.Admin.Secret == "" {
		return fmt.Errorf("ADMIN_SECRET is required")
	}

	if c.Registration.PasswordMinLength < 1 ||
		c.Registration.PasswordMinLength > 255 {
		return fmt.Errorf(
			"registration.password_min_length must be between 1 and 255",
		)
	}

	if c.Registration.TokenWordCount < 1 {
		return fmt.Errorf("registration.token_word_count must be positive")
	}

	for _, pattern := range c.Registration.UsernameDenylist {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid denylist pattern %q: %w", pattern, err)
		}
	}

	for _, pattern := range c.Registration.UsernameAllowlist {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid allowlist pattern %q: %w", pattern, err)
		}
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
