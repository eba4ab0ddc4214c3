package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type DB struct {
	Host string
	Port int
	User string
	Pass string
	Name string
}

type HTTP struct {
	Host string
	Port int
}

type Redis struct {
	Addr string
	DB   int
}

type RateLimit struct {
	Limit  int
	Window time.Duration
}

type Config struct {
	HTTP  HTTP
	DB    DB
	Redis Redis
	JWT   struct {
		Secret          string
		Issuer          string
		ExpMin          int
		DeviceTokenDays int
	}
	EnrollTokenTTL     time.Duration
	MaxReportSizeBytes int64
	RateLimit          RateLimit
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("backend.host", "127.0.0.1")
	v.SetDefault("backend.port", 8000)
	v.SetDefault("backend.db.host", "127.0.0.1")
	v.SetDefault("backend.db.port", 3306)
	v.SetDefault("backend.db.user", "root")
	v.SetDefault("backend.db.pass", "")
	v.SetDefault("backend.db.name", "pc_insight")
	v.SetDefault("backend.redis.addr", "")
	v.SetDefault("backend.redis.db", 0)
	v.SetDefault("backend.jwt.secret", "dev-secret")
	v.SetDefault("backend.jwt.issuer", "pc-insight")
	v.SetDefault("backend.jwt.exp_min", 60)
	v.SetDefault("backend.jwt.device_token_days", 180)
	v.SetDefault("backend.enroll_token_ttl", "15m")
	v.SetDefault("backend.max_report_size_bytes", 2<<20)
	v.SetDefault("backend.rate_limit.limit", 120)
	v.SetDefault("backend.rate_limit.window", "1m")
	if err := v.ReadInConfig(); err != nil {
		// Defaults carry a dev setup; a present-but-broken file is fatal.
		if _, statErr := os.Stat(path); statErr == nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	cfg.HTTP = HTTP{Host: v.GetString("backend.host"), Port: v.GetInt("backend.port")}
	cfg.DB = DB{
		Host: v.GetString("backend.db.host"),
		Port: v.GetInt("backend.db.port"),
		User: v.GetString("backend.db.user"),
		Pass: v.GetString("backend.db.pass"),
		Name: v.GetString("backend.db.name"),
	}
	cfg.Redis = Redis{Addr: v.GetString("backend.redis.addr"), DB: v.GetInt("backend.redis.db")}
	cfg.JWT.Secret = v.GetString("backend.jwt.secret")
	cfg.JWT.Issuer = v.GetString("backend.jwt.issuer")
	cfg.JWT.ExpMin = v.GetInt("backend.jwt.exp_min")
	cfg.JWT.DeviceTokenDays = v.GetInt("backend.jwt.device_token_days")
	cfg.EnrollTokenTTL = v.GetDuration("backend.enroll_token_ttl")
	cfg.MaxReportSizeBytes = v.GetInt64("backend.max_report_size_bytes")
	cfg.RateLimit = RateLimit{
		Limit:  v.GetInt("backend.rate_limit.limit"),
		Window: v.GetDuration("backend.rate_limit.window"),
	}
	return cfg, nil
}
