package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Security  SecuritySettings  `mapstructure:"security"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Metrics   MetricsSettings   `mapstructure:"metrics"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the Kafka producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint
type RateLimitSettings struct {
	WindowDuration           time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts         int           `mapstructure:"login_max_attempts"`
	RegisterMaxAttempts      int           `mapstructure:"register_max_attempts"`
	RefreshMaxAttempts       int           `mapstructure:"refresh_max_attempts"`
	PasswordResetMaxAttempts int           `mapstructure:"password_reset_max_attempts"`
}

// JWTSettings holds the signing material and lifetimes for both token kinds.
// Access and refresh tokens use independent secrets so one cannot be
// presented in place of the other.
type JWTSettings struct {
	AccessSecret    string        `mapstructure:"access_secret"`
	RefreshSecret   string        `mapstructure:"refresh_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RememberMeTTL   time.Duration `mapstructure:"remember_me_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	Issuer          string        `mapstructure:"issuer"`
}

// SecuritySettings groups credential hashing, lockout, and ephemeral token knobs.
type SecuritySettings struct {
	BcryptCost           int           `mapstructure:"bcrypt_cost"`
	MaxFailedAttempts    int           `mapstructure:"max_failed_attempts"`
	LockoutDuration      time.Duration `mapstructure:"lockout_duration"`
	VerificationTokenTTL time.Duration `mapstructure:"verification_token_ttl"`
	ResetTokenTTL        time.Duration `mapstructure:"reset_token_ttl"`
	MinPasswordLength    int           `mapstructure:"min_password_length"`
	MinPasswordStrength  int           `mapstructure:"min_password_strength"`
}

type MetricsSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("USERSVC")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"jwt.access_secret",
		"jwt.refresh_secret",
		"jwt.access_token_ttl",
		"jwt.remember_me_ttl",
		"jwt.refresh_token_ttl",
		"jwt.issuer",
		"security.bcrypt_cost",
		"security.max_failed_attempts",
		"security.lockout_duration",
		"security.verification_token_ttl",
		"security.reset_token_ttl",
		"security.min_password_length",
		"security.min_password_strength",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.register_max_attempts",
		"rate_limit.refresh_max_attempts",
		"rate_limit.password_reset_max_attempts",
		"metrics.enabled",
		"metrics.path",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.App.Env != "development" && c.JWT.AccessSecret == "" {
		return fmt.Errorf("jwt.access_secret is required outside development")
	}
	if c.App.Env != "development" && c.JWT.RefreshSecret == "" {
		return fmt.Errorf("jwt.refresh_secret is required outside development")
	}
	if c.Security.MaxFailedAttempts < 1 {
		return fmt.Errorf("security.max_failed_attempts must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "user-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "users")
	v.SetDefault("postgres.password", "users_password")
	v.SetDefault("postgres.database", "users")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "users")
	v.SetDefault("kafka.async", true)

	// Development-only secrets; validate() rejects empty secrets elsewhere.
	v.SetDefault("jwt.access_secret", "dev-access-secret")
	v.SetDefault("jwt.refresh_secret", "dev-refresh-secret")
	v.SetDefault("jwt.access_token_ttl", "168h")
	v.SetDefault("jwt.remember_me_ttl", "720h")
	v.SetDefault("jwt.refresh_token_ttl", "720h")
	v.SetDefault("jwt.issuer", "user-service")

	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("security.max_failed_attempts", 5)
	v.SetDefault("security.lockout_duration", "2h")
	v.SetDefault("security.verification_token_ttl", "24h")
	v.SetDefault("security.reset_token_ttl", "10m")
	v.SetDefault("security.min_password_length", 8)
	v.SetDefault("security.min_password_strength", 2)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.register_max_attempts", 3)
	v.SetDefault("rate_limit.refresh_max_attempts", 10)
	v.SetDefault("rate_limit.password_reset_max_attempts", 3)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "USERSVC_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
