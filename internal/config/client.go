package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ClientConfig configures the ugcctl command-line client
type ClientConfig struct {
	ServerURL    string
	PollInterval time.Duration
	Timeout      time.Duration
	Log          LogConfig
	Store        StoreConfig
	Redis        RedisConfig
	R2           R2Config
}

// StoreConfig selects where stats, history and the cached password live
type StoreConfig struct {
	Backend string // file, redis, r2, memory
	Dir     string
	Prefix  string
}

// ClientFlags registers the flags LoadClient understands.
func ClientFlags(fs *pflag.FlagSet) {
	fs.String("server", "http://localhost:8000", "UGC API base URL")
	fs.Duration("poll-interval", 5*time.Second, "job status poll interval")
	fs.Duration("timeout", 30*time.Second, "per-request timeout")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("store", "file", "state backend (file, redis, r2, memory)")
	fs.String("store-dir", defaultStoreDir(), "directory for the file backend")
	fs.String("store-prefix", "", "key prefix for redis/r2 backends")
}

// LoadClient merges flags, UGC_* environment variables and an optional
// ugcctl.yaml, in that order of precedence.
func LoadClient(fs *pflag.FlagSet) (*ClientConfig, error) {
	_ = godotenv.Load(".env", ".env.local")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("REDIS_PASSWORD")

	v := viper.New()
	v.SetConfigName("ugcctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/ugcctl")

	v.SetEnvPrefix("UGC")
	v.AutomaticEnv()

	_ = v.BindPFlag("server.url", fs.Lookup("server"))
	_ = v.BindPFlag("poll.interval", fs.Lookup("poll-interval"))
	_ = v.BindPFlag("timeout", fs.Lookup("timeout"))
	_ = v.BindPFlag("log.level", fs.Lookup("log-level"))
	_ = v.BindPFlag("store.backend", fs.Lookup("store"))
	_ = v.BindPFlag("store.dir", fs.Lookup("store-dir"))
	_ = v.BindPFlag("store.prefix", fs.Lookup("store-prefix"))

	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = v.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = v.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = v.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.endpoint", "R2_ENDPOINT")

	v.SetDefault("redis.addr", "localhost:6379")

	_ = v.ReadInConfig()

	return &ClientConfig{
		ServerURL:    v.GetString("server.url"),
		PollInterval: v.GetDuration("poll.interval"),
		Timeout:      v.GetDuration("timeout"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: "console",
		},
		Store: StoreConfig{
			Backend: v.GetString("store.backend"),
			Dir:     v.GetString("store.dir"),
			Prefix:  v.GetString("store.prefix"),
		},
		Redis: RedisConfig{
			Enabled:  true,
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			Endpoint:        v.GetString("r2.endpoint"),
		},
	}, nil
}
