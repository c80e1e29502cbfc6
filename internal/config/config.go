package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Access    AccessConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	RequestsPerMin int
	QuotaPerDay    int
}

type WebhookConfig struct {
	URL     string
	Secret  string
	Timeout int // seconds
}

// AccessConfig lists the shared passwords that unlock the proxy route
type AccessConfig struct {
	Passwords      []string
	AdminPasswords []string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string // overrides the R2 account endpoint, for any S3-compatible store
}

// WebhookTimeout returns the configured upstream timeout.
func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.Webhook.Timeout) * time.Second
}

func Load() (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env", ".env.local")

	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("N8N_WEBHOOK_SECRET")
	readSecret("ACCESS_PASSWORDS")
	readSecret("ADMIN_PASSWORDS")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables
	v.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "LOG_FORMAT")
	_ = v.BindEnv("log.file", "LOG_FILE")
	_ = v.BindEnv("redis.enabled", "REDIS_ENABLED")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = v.BindEnv("ratelimit.requests_per_min", "RATE_LIMIT_PER_MIN")
	_ = v.BindEnv("ratelimit.quota_per_day", "QUOTA_PER_DAY")
	_ = v.BindEnv("webhook.url", "N8N_WEBHOOK_URL")
	_ = v.BindEnv("webhook.secret", "N8N_WEBHOOK_SECRET")
	_ = v.BindEnv("webhook.timeout", "N8N_WEBHOOK_TIMEOUT")
	_ = v.BindEnv("access.passwords", "ACCESS_PASSWORDS")
	_ = v.BindEnv("access.admin_passwords", "ADMIN_PASSWORDS")

	// Defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expiration", 24)
	v.SetDefault("ratelimit.requests_per_min", 10)
	v.SetDefault("ratelimit.quota_per_day", 2)
	v.SetDefault("webhook.timeout", 60)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("server.port"),
			Env:  v.GetString("server.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Expiration: v.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMin: v.GetInt("ratelimit.requests_per_min"),
			QuotaPerDay:    v.GetInt("ratelimit.quota_per_day"),
		},
		Webhook: WebhookConfig{
			URL:     v.GetString("webhook.url"),
			Secret:  v.GetString("webhook.secret"),
			Timeout: v.GetInt("webhook.timeout"),
		},
		Access: AccessConfig{
			Passwords:      stringList(v, "access.passwords"),
			AdminPasswords: stringList(v, "access.admin_passwords"),
		},
	}

	return cfg, nil
}

// stringList accepts either a YAML list or a comma separated env value.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, part := range strings.Split(strings.Join(v.GetStringSlice(key), ","), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
