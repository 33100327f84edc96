package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"lms_backend/internal/grading"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Grading   GradingConfig   `mapstructure:"grading"`

	// 配置文件实际路径（非配置项，用于热加载）
	File string `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	LogLevel  string `mapstructure:"log_level"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

func (j JWTConfig) ExpireTime() time.Duration {
	return time.Duration(j.ExpireHours) * time.Hour
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled 未配置 host 时不启用 Redis（聚合重试队列随之关闭）
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type BandConfig struct {
	Name string  `mapstructure:"name"`
	Min  float64 `mapstructure:"min"`
}

type GradingConfig struct {
	DiagnosticBands      []BandConfig `mapstructure:"diagnostic_bands"`
	RetryIntervalSeconds int          `mapstructure:"retry_interval_seconds"`
	RetryBatchSize       int          `mapstructure:"retry_batch_size"`
}

func (g GradingConfig) Bands() []grading.Band {
	if len(g.DiagnosticBands) == 0 {
		return grading.DefaultBands()
	}
	out := make([]grading.Band, len(g.DiagnosticBands))
	for i, b := range g.DiagnosticBands {
		out[i] = grading.Band{Level: i + 1, Name: b.Name, Min: b.Min}
	}
	return out
}

func (g GradingConfig) Leveler() (*grading.Leveler, error) {
	return grading.NewLeveler(g.Bands())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("jwt.expire_hours", 24)

	v.SetDefault("redis.port", 6379)

	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)

	v.SetDefault("grading.retry_interval_seconds", 30)
	v.SetDefault("grading.retry_batch_size", 50)
}

// LoadConfig 从 path 目录读取 config.yaml，环境变量优先。
// 找不到配置文件时使用默认值 + 环境变量。
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("LMS")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	} else {
		cfg.File = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.File != "" {
		cfg.File, _ = filepath.Abs(cfg.File)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}

	if c.Database.Driver != "mysql" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if _, err := c.Grading.Leveler(); err != nil {
		return fmt.Errorf("grading.diagnostic_bands: %w", err)
	}

	return nil
}
