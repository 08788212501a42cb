// Package config provides configuration management for idsync.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like TENANT_ID, AUTH_API_TOKEN)
// 3. Default values
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "idsync.io/idsync/internal/pkg/errors"
)

// Config is the root configuration structure.
type Config struct {
	Tenant TenantConfig `mapstructure:"tenant"`
	Auth   AuthConfig   `mapstructure:"auth"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Log    LogConfig    `mapstructure:"log"`
}

// TenantConfig identifies the remote identity service.
type TenantConfig struct {
	ID string `mapstructure:"id"`

	// APIURL overrides the default per-tenant endpoint.
	APIURL string `mapstructure:"api_url"`
}

// AuthConfig contains the credential set. Exactly one of token, cert/key,
// or p12/password must be usable; the client validates the combination.
type AuthConfig struct {
	APIToken    string `mapstructure:"api_token"`
	CertFile    string `mapstructure:"cert_file"`
	CertKeyFile string `mapstructure:"cert_key_file"`
	P12File     string `mapstructure:"p12_file"`
	P12Password string `mapstructure:"p12_password"`
}

// HTTPConfig contains transport and HTTP-layer retry settings.
type HTTPConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BackoffMin        time.Duration `mapstructure:"backoff_min"`
	BackoffMax        time.Duration `mapstructure:"backoff_max"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
}

// SyncConfig contains reconciliation settings.
type SyncConfig struct {
	// Namespace scopes every remote operation.
	Namespace string `mapstructure:"namespace"`

	// DNSLabels enables the stricter DNS-1035 group naming grammar.
	DNSLabels bool `mapstructure:"dns_labels"`

	// Retry tuning for on-demand user creation during group sync.
	RetryAttempts     int           `mapstructure:"retry_attempts"`
	BackoffMin        time.Duration `mapstructure:"backoff_min"`
	BackoffMax        time.Duration `mapstructure:"backoff_max"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/idsync")

	// Environment variable override, no prefix: tenant.id → TENANT_ID,
	// auth.api_token → AUTH_API_TOKEN, sync.namespace → SYNC_NAMESPACE.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Tenant.ID == "" && c.Tenant.APIURL == "" {
		return apperrors.Usage(apperrors.CodeConfigInvalid,
			"tenant.id must be set (TENANT_ID) unless tenant.api_url is provided")
	}
	if c.HTTP.MaxRetries < 1 {
		return apperrors.Usage(apperrors.CodeConfigInvalid,
			"http.max_retries must be at least 1")
	}
	if c.Sync.RetryAttempts < 1 {
		return apperrors.Usage(apperrors.CodeConfigInvalid,
			"sync.retry_attempts must be at least 1")
	}
	return nil
}

// HasCredentials reports whether any credential combination is present.
func (c *Config) HasCredentials() bool {
	return c.Auth.APIToken != "" ||
		(c.Auth.CertFile != "" && c.Auth.CertKeyFile != "") ||
		(c.Auth.P12File != "" && c.Auth.P12Password != "")
}

func setDefaults(v *viper.Viper) {
	// Registering every key, empty ones included, is what lets
	// AutomaticEnv feed Unmarshal: viper only maps env vars for keys it
	// already knows about.
	v.SetDefault("tenant.id", "")
	v.SetDefault("tenant.api_url", "")
	v.SetDefault("auth.api_token", "")
	v.SetDefault("auth.cert_file", "")
	v.SetDefault("auth.cert_key_file", "")
	v.SetDefault("auth.p12_file", "")
	v.SetDefault("auth.p12_password", "")

	// HTTP layer: transient-only retry, wider ceiling.
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_min", "1s")
	v.SetDefault("http.backoff_max", "8s")
	v.SetDefault("http.backoff_multiplier", 2.0)

	// Sync engine: broad retry around on-demand user creation.
	v.SetDefault("sync.namespace", "system")
	v.SetDefault("sync.dns_labels", false)
	v.SetDefault("sync.retry_attempts", 3)
	v.SetDefault("sync.backoff_min", "1s")
	v.SetDefault("sync.backoff_max", "4s")
	v.SetDefault("sync.backoff_multiplier", 2.0)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
