// Package config 提供了统一的配置加载与管理能力。
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wyfcoding/allowance/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局顶级配置结构。
type Config struct {
	Server       ServerConfig       `mapstructure:"server"       toml:"server"`
	Log          LogConfig          `mapstructure:"log"          toml:"log"`
	MessageQueue MessageQueueConfig `mapstructure:"messagequeue" toml:"messagequeue"`
	Topics       TopicsConfig       `mapstructure:"topics"       toml:"topics"`
	Data         DataConfig         `mapstructure:"data"         toml:"data"`
	Snapshot     SnapshotConfig     `mapstructure:"snapshot"     toml:"snapshot"`
	Identity     IdentityConfig     `mapstructure:"identity"     toml:"identity"`
	Tracing      TracingConfig      `mapstructure:"tracing"      toml:"tracing"`
	Metrics      MetricsConfig      `mapstructure:"metrics"      toml:"metrics"`
	Version      string             `mapstructure:"version"      toml:"version"`
}

// ServerConfig 定义服务名称与运行环境。
type ServerConfig struct {
	Name        string `mapstructure:"name"        toml:"name"        validate:"required"`
	Environment string `mapstructure:"environment" toml:"environment" validate:"oneof=dev test prod"`
}

// LogConfig 定义日志输出、级别与切割策略。
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"`       // 日志级别。
	File       string `mapstructure:"file"        toml:"file"`        // 日志文件路径，为空输出到 stdout。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`    // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"` // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`     // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"`    // 是否启用压缩。
}

// MessageQueueConfig 聚合所有消息中间件配置。
type MessageQueueConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka" toml:"kafka"`
}

// KafkaConfig 定义 Kafka 生产者与消费者参数。
type KafkaConfig struct {
	GroupID         string        `mapstructure:"group_id"          toml:"group_id"`
	Brokers         []string      `mapstructure:"brokers"           toml:"brokers"           validate:"required,min=1"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"      toml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"     toml:"write_timeout"`
	MaxWait         time.Duration `mapstructure:"max_wait"          toml:"max_wait"`
	MaxAttempts     int           `mapstructure:"max_attempts"      toml:"max_attempts"`
	RetryMax        int           `mapstructure:"retry_max"         toml:"retry_max"`
	RetryInitial    time.Duration `mapstructure:"retry_initial"     toml:"retry_initial"`
	RetryMaxBackoff time.Duration `mapstructure:"retry_max_backoff" toml:"retry_max_backoff"`
	Async           bool          `mapstructure:"async"             toml:"async"`
}

// TopicsConfig 每个限界上下文一个主题，外加共享的通知主题与死信主题。
type TopicsConfig struct {
	Bank         string `mapstructure:"bank"         toml:"bank"`
	Store        string `mapstructure:"store"        toml:"store"`
	Task         string `mapstructure:"task"         toml:"task"`
	Family       string `mapstructure:"family"       toml:"family"`
	Notification string `mapstructure:"notification" toml:"notification"`
	DLQ          string `mapstructure:"dlq"          toml:"dlq"`
}

// DataConfig 汇集了所有持久化存储的数据源配置。
type DataConfig struct {
	Database DatabaseConfig       `mapstructure:"database" toml:"database"`
	MongoDB  MongoDBConfig        `mapstructure:"mongodb"  toml:"mongodb"`
	Breaker  CircuitBreakerConfig `mapstructure:"breaker"  toml:"breaker"`
}

// CircuitBreakerConfig 熔断器配置。
type CircuitBreakerConfig struct {
	MaxRequests uint32        `mapstructure:"max_requests" toml:"max_requests"`
	Interval    time.Duration `mapstructure:"interval"     toml:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"      toml:"timeout"`
	Enabled     bool          `mapstructure:"enabled"      toml:"enabled"`
}

// DatabaseConfig 定义事件存储数据库连接与连接池参数。
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"            toml:"driver"            validate:"required,oneof=mysql postgres sqlite"`
	DSN             string        `mapstructure:"dsn"               toml:"dsn"               validate:"required"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" toml:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"    toml:"slow_threshold"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    toml:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    toml:"max_open_conns"`
}

// MongoDBConfig 定义读模型投影存储连接参数。
type MongoDBConfig struct {
	URI            string        `mapstructure:"uri"             toml:"uri"`
	Database       string        `mapstructure:"database"        toml:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" toml:"connect_timeout"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"   toml:"max_pool_size"`
}

// SnapshotConfig 快照策略参数。间隔为 0 时关闭快照。
type SnapshotConfig struct {
	Interval int64 `mapstructure:"interval" toml:"interval"`
}

// IdentityConfig 外部身份服务配置。
type IdentityConfig struct {
	PoolID  string `mapstructure:"pool_id" toml:"pool_id"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// TracingConfig 分布式链路追踪（OpenTelemetry）配置。
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"  toml:"sample_ratio"`
}

// MetricsConfig 指标暴露配置。
type MetricsConfig struct {
	Port    string `mapstructure:"port"    toml:"port"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

var vInstance = viper.New()

// Load 加载 TOML 配置文件，支持环境变量覆盖与热更新。
func Load(path string, conf *Config) error {
	vInstance.SetConfigFile(path)
	vInstance.SetConfigType("toml")

	vInstance.SetEnvPrefix("APP")
	vInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vInstance.AutomaticEnv()

	if err := vInstance.ReadInConfig(); err != nil {
		return fmt.Errorf("read config error: %w", err)
	}

	if err := vInstance.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}

	applyDefaults(conf)

	validate := validator.New()
	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	vInstance.WatchConfig()
	vInstance.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		if unmarshalErr := vInstance.Unmarshal(conf); unmarshalErr != nil {
			slog.Error("reload config unmarshal failed", "error", unmarshalErr)

			return
		}

		logging.SetLevel(conf.Log.Level)

		if validateErr := validate.Struct(conf); validateErr != nil {
			slog.Error("reload config validation failed", "error", validateErr)
		} else {
			slog.Info("config hot-reloaded and validated successfully")
		}
	})

	return nil
}

func applyDefaults(conf *Config) {
	topics := &conf.Topics
	if topics.Bank == "" {
		topics.Bank = "allowance.bank"
	}
	if topics.Store == "" {
		topics.Store = "allowance.store"
	}
	if topics.Task == "" {
		topics.Task = "allowance.task"
	}
	if topics.Family == "" {
		topics.Family = "allowance.family"
	}
	if topics.Notification == "" {
		topics.Notification = "allowance.notification"
	}
	if topics.DLQ == "" {
		topics.DLQ = "allowance.dlq"
	}

	kafka := &conf.MessageQueue.Kafka
	if kafka.MaxAttempts <= 0 {
		kafka.MaxAttempts = 5
	}
	if kafka.MaxWait <= 0 {
		kafka.MaxWait = time.Second
	}
}
