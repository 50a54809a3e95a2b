package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads config.yaml from the usual locations, then applies APP_* and
// the common unprefixed deployment variables on top.
func Load() (*Config, error) {
	return load(viper.New(), "./configs", ".", "/app/configs")
}

func load(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow common env vars without APP_ prefix for Docker/VM deploys
	_ = v.BindEnv("http.port", "HTTP_PORT", "APP_HTTP_PORT")
	_ = v.BindEnv("database.url", "DATABASE_URL", "APP_DATABASE_URL")
	_ = v.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	_ = v.BindEnv("nats.url", "NATS_URL", "APP_NATS_URL")
	_ = v.BindEnv("rabbitmq.url", "RABBITMQ_URL", "APP_RABBITMQ_URL")
	_ = v.BindEnv("app.environment", "APP_ENVIRONMENT")
	_ = v.BindEnv("logging.level", "LOG_LEVEL", "APP_LOGGING_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "sigec-posto")
	v.SetDefault("app.version", "v1.0.0")
	v.SetDefault("app.environment", "development")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.key_prefix", "sigec-posto:")

	v.SetDefault("queue.driver", "none")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("rabbitmq.exchange", "posto.events")
	v.SetDefault("rabbitmq.reconnect_wait", 5*time.Second)

	v.SetDefault("opentelemetry.enabled", false)
	v.SetDefault("opentelemetry.service_name", "sigec-posto")
	v.SetDefault("opentelemetry.jaeger.endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("opentelemetry.jaeger.sampler_param", 1.0)

	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.max_requests", 3)
	v.SetDefault("circuit_breaker.interval", time.Minute)
	v.SetDefault("circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.min_requests", 3)
	v.SetDefault("circuit_breaker.failure_threshold", 0.6)

	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Actor-ID", "X-Request-ID"})
	v.SetDefault("cors.expose_headers", []string{"Content-Length"})
	v.SetDefault("cors.max_age", 86400)
	v.SetDefault("cors.credentials", false)

	v.SetDefault("cache.backend", "local")
	v.SetDefault("cache.topology_summary_ttl", 5*time.Minute)
	v.SetDefault("cache.cleanup_interval", time.Minute)
	v.SetDefault("cache.max_entries", 10000)
}

func (c *Config) validate() error {
	switch c.Queue.Driver {
	case "none", "nats", "rabbitmq":
	default:
		return fmt.Errorf("invalid queue.driver %q: want none, nats or rabbitmq", c.Queue.Driver)
	}
	switch c.Cache.Backend {
	case "local", "redis":
	default:
		return fmt.Errorf("invalid cache.backend %q: want local or redis", c.Cache.Backend)
	}
	if c.HTTP.Port <= 0 {
		return fmt.Errorf("invalid http.port %d", c.HTTP.Port)
	}
	if c.CORS.Enabled && c.CORS.Credentials && c.CORS.AllowsAnyOrigin() {
		return fmt.Errorf("cors.credentials requires explicit cors.allowed_origins")
	}
	return nil
}
