// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Log           LogConfig           `mapstructure:"log"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Topic         TopicConfig         `mapstructure:"topic"`
	Prompt        PromptConfig        `mapstructure:"prompt"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	Driver string      `mapstructure:"driver"` // mysql | postgres | sqlite
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时不启用 Redis。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 存储会话令牌相关的配置。
type AuthConfig struct {
	Secret             string `mapstructure:"secret"`
	AccessKeyHash      string `mapstructure:"access_key_hash"` // bcrypt 哈希，为空表示无需访问密钥
	SessionExpireHours int    `mapstructure:"session_expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Timeout    time.Duration       `mapstructure:"timeout"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
	Breaker    BreakerConfig       `mapstructure:"breaker"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// BreakerConfig 配置 LLM 调用的熔断器。
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MinRequests      uint32        `mapstructure:"min_requests"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
}

// TopicConfig 配置话题过滤。
type TopicConfig struct {
	Window   int           `mapstructure:"window"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// PromptConfig 配置系统提示与固定回复文本。
type PromptConfig struct {
	Persona  string `mapstructure:"persona"`
	Refusal  string `mapstructure:"refusal"`
	Greeting string `mapstructure:"greeting"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空时不发布对话事件。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。Addresses 为空时不启用检索。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。Endpoint 为空时不启用导出。
type MinIOConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	BucketName      string        `mapstructure:"bucket_name"`
	URLExpiry       time.Duration `mapstructure:"url_expiry"`
}

const (
	DefaultPersona = "You are a knowledgeable and insightful tarot reader. Your goal is to provide meaningful and accurate tarot " +
		"readings, interpretations, and spiritual guidance to users. Use your expertise to help users understand the " +
		"symbolism and meanings of the tarot cards they draw. Offer thoughtful, compassionate yet firm and truthful " +
		"advice based on the cards and their positions in the spread. Remember to be respectful and considerate in " +
		"your responses, and ensure that your guidance is always related to tarot readings. You will speak mystical " +
		"and draw cards when necessary. Otherwise, you will extend your reading of existing cards to provide more " +
		"context to your answers."
	DefaultRefusal  = "I'm sorry. I can only answer questions using Tarot."
	DefaultGreeting = "What is your question? Let's see if spirits have the answers for us."
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "tarot.db")
	v.SetDefault("auth.session_expire_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.breaker.max_requests", 1)
	v.SetDefault("llm.breaker.interval", 60*time.Second)
	v.SetDefault("llm.breaker.timeout", 30*time.Second)
	v.SetDefault("llm.breaker.min_requests", 5)
	v.SetDefault("llm.breaker.failure_threshold", 0.6)
	v.SetDefault("topic.window", 10)
	v.SetDefault("topic.cache_ttl", 24*time.Hour)
	v.SetDefault("prompt.persona", DefaultPersona)
	v.SetDefault("prompt.refusal", DefaultRefusal)
	v.SetDefault("prompt.greeting", DefaultGreeting)
	v.SetDefault("kafka.topic", "tarot-turns")
	v.SetDefault("kafka.group_id", "tarot-ai-go-indexer")
	v.SetDefault("elasticsearch.index_name", "tarot_transcripts")
	v.SetDefault("minio.bucket_name", "tarot-transcripts")
	v.SetDefault("minio.url_expiry", time.Hour)

	// 没有默认值的键也要注册，否则 Unmarshal 时 AutomaticEnv 无法覆盖。
	for _, key := range []string{
		"database.redis.addr", "database.redis.password", "database.redis.db",
		"auth.secret", "auth.access_key_hash", "log.output_path",
		"llm.api_key", "llm.generation.temperature", "llm.generation.top_p", "llm.generation.max_tokens",
		"llm.breaker.enabled", "kafka.brokers",
		"elasticsearch.addresses", "elasticsearch.username", "elasticsearch.password",
		"minio.endpoint", "minio.access_key_id", "minio.secret_access_key", "minio.use_ssl",
	} {
		if err := v.BindEnv(key); err != nil {
			panic(err)
		}
	}
}

// Load 读取 YAML 配置文件并允许 TAROT_* 环境变量覆盖任意键，例如 TAROT_LLM_API_KEY。
// configPath 为空时只使用默认值和环境变量。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TAROT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 检查互相依赖的配置项。
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout)
	}
	if c.Topic.Window <= 0 {
		return fmt.Errorf("topic.window must be positive, got %d", c.Topic.Window)
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	return nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
