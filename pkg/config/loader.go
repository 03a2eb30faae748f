package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envKeys lists every key that may be supplied through the environment alone.
// Viper only resolves AutomaticEnv values for keys it already knows about.
var envKeys = []string{
	"service.name", "service.version", "service.env",
	"server.http_port", "server.read_timeout", "server.write_timeout",
	"server.shutdown_timeout", "server.max_header_bytes",
	"cache.url", "cache.host", "cache.port", "cache.username", "cache.password",
	"cache.db", "cache.client_name", "cache.tls", "cache.max_retries",
	"cache.dial_timeout", "cache.read_timeout", "cache.write_timeout",
	"cache.pool_size", "cache.min_idle_conns", "cache.default_ttl",
	"log.level", "log.format", "log.output",
	"metrics.enabled", "metrics.port", "metrics.path", "metrics.namespace",
	"tracing.enabled", "tracing.endpoint", "tracing.sample_rate",
	"tracing.service_name", "tracing.environment", "tracing.export_mode",
	"tracing.insecure", "tracing.batch_timeout",
	"connect.max_attempts", "connect.initial_backoff", "connect.max_backoff",
	"connect.timeout",
}

// Load loads configuration from a file and environment variables.
// The prefix parameter is used for environment variable names (e.g., "KVCACHE" -> KVCACHE_CACHE_HOST).
// If configPath is empty, only environment variables will be used.
func Load(configPath, envPrefix string) (*Config, error) {
	v := viper.New()

	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration and panics on error.
// This is useful in main() where configuration errors should be fatal.
func MustLoad(configPath, envPrefix string) *Config {
	cfg, err := Load(configPath, envPrefix)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFromEnv loads configuration only from environment variables (no config file).
func LoadFromEnv(envPrefix string) (*Config, error) {
	return Load("", envPrefix)
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
func MustLoadFromEnv(envPrefix string) *Config {
	return MustLoad("", envPrefix)
}
