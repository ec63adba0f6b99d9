package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用全量配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// AppConfig 应用基本信息
type AppConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Env  string `mapstructure:"env" validate:"oneof=dev test prod"`
}

// ServerConfig 内部运维 API 配置
type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	JWTSecret string `mapstructure:"jwt_secret" validate:"required"`
}

// DatabaseConfig 数据库配置（postgres 生产 / sqlite 本地）
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DSN          string `mapstructure:"dsn" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// RedisConfig 花名册缓存配置（addr 为空则关闭缓存）
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	DB        int           `mapstructure:"db"`
	RosterTTL time.Duration `mapstructure:"roster_ttl"`
}

// WorkerConfig 通知派发循环的时间参数
type WorkerConfig struct {
	// CycleInterval 两轮之间的基础休眠；实际休眠再加 [0, CycleJitter) 抖动
	CycleInterval time.Duration `mapstructure:"cycle_interval" validate:"gt=0"`
	CycleJitter   time.Duration `mapstructure:"cycle_jitter"`
	// ClaimTimeout 租约超时：超过则认为持有进程已崩溃，任务可被重新认领
	ClaimTimeout time.Duration `mapstructure:"claim_timeout" validate:"gt=0"`
	// MaxJobAge 任务最大存活时间：超过则整体删除，不再派发
	MaxJobAge time.Duration `mapstructure:"max_job_age" validate:"gt=0"`
	// SendInterval 相邻两条外发邮件入队的最小间隔（限流）
	SendInterval time.Duration `mapstructure:"send_interval"`
}

// SentryConfig 错误上报（dsn 为空则关闭）
type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

// TracingConfig OTLP 链路追踪
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Load 读取配置：默认值 < config.yaml < 环境变量（前缀 FORUM_）
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		// 配置文件可选，缺失时仅依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("FORUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 兼容惯用的 DATABASE_URL 覆盖
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.Driver = "postgres"
		cfg.Database.DSN = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "course-forum")
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.jwt_secret", "dev-secret")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "course-forum.db")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.roster_ttl", 5*time.Minute)
	v.SetDefault("worker.cycle_interval", 2*time.Minute)
	v.SetDefault("worker.cycle_jitter", 30*time.Second)
	v.SetDefault("worker.claim_timeout", 2*time.Minute)
	v.SetDefault("worker.max_job_age", 20*time.Minute)
	v.SetDefault("worker.send_interval", 250*time.Millisecond)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
}
