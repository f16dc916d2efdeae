// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Providers     ProvidersConfig     `yaml:"providers" mapstructure:"providers"`
	Entitlements  EntitlementsConfig  `yaml:"entitlements" mapstructure:"entitlements"`
	Chat          ChatConfig          `yaml:"chat" mapstructure:"chat"`
	Artifacts     ArtifactsConfig     `yaml:"artifacts" mapstructure:"artifacts"`
	Session       SessionConfig       `yaml:"session" mapstructure:"session"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	// URL postgres:// 连接串，非空时优先于分项配置
	URL             string        `yaml:"url" mapstructure:"url"`
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate" mapstructure:"auto_migrate"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" mapstructure:"slow_threshold"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
	// VideoDetailsTTL 视频详情缓存时长
	VideoDetailsTTL time.Duration `yaml:"video_details_ttl" mapstructure:"video_details_ttl"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// URL redis:// 或 rediss:// 连接串，非空时优先于 Host/Port
	URL          string        `yaml:"url" mapstructure:"url"`
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// StorageConfig 对象存储配置（S3 兼容，含 Cloudflare R2）
type StorageConfig struct {
	S3 S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config S3 兼容存储配置
type S3Config struct {
	Endpoint        string        `yaml:"endpoint" mapstructure:"endpoint"`
	Region          string        `yaml:"region" mapstructure:"region"`
	Bucket          string        `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string        `yaml:"prefix" mapstructure:"prefix"`
	AccessKeyID     string        `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	PublicURL       string        `yaml:"public_url" mapstructure:"public_url"`
	PresignTTL      time.Duration `yaml:"presign_ttl" mapstructure:"presign_ttl"`
	UsePathStyle    bool          `yaml:"use_path_style" mapstructure:"use_path_style"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	Retry           RetryConfig               `yaml:"retry" mapstructure:"retry"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RetryConfig 上游调用重试配置
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
}

// ProvidersConfig 外部内容提供方配置
type ProvidersConfig struct {
	Transcript   HTTPProviderConfig  `yaml:"transcript" mapstructure:"transcript"`
	VideoDetails HTTPProviderConfig  `yaml:"video_details" mapstructure:"video_details"`
	Image        ImageProviderConfig `yaml:"image" mapstructure:"image"`
}

// HTTPProviderConfig 基于 HTTP 的提供方配置
type HTTPProviderConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
}

// ImageProviderConfig 图像生成配置
type ImageProviderConfig struct {
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Size    string        `yaml:"size" mapstructure:"size"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
}

// EntitlementsConfig 套餐与功能配额
type EntitlementsConfig struct {
	DefaultPlan string                `yaml:"default_plan" mapstructure:"default_plan"`
	Period      time.Duration         `yaml:"period" mapstructure:"period"`
	Plans       map[string]PlanConfig `yaml:"plans" mapstructure:"plans"`
}

// PlanConfig 单个套餐的功能集合，键为功能名
type PlanConfig struct {
	Features map[string]FeatureConfig `yaml:"features" mapstructure:"features"`
}

// FeatureConfig 功能开关与额度；Allocation <= 0 表示不限量
type FeatureConfig struct {
	Enabled    bool  `yaml:"enabled" mapstructure:"enabled"`
	Allocation int64 `yaml:"allocation" mapstructure:"allocation"`
}

// ChatConfig 对话编排配置
type ChatConfig struct {
	TurnTimeout           time.Duration `yaml:"turn_timeout" mapstructure:"turn_timeout"`
	MaxToolRounds         int           `yaml:"max_tool_rounds" mapstructure:"max_tool_rounds"`
	MaxTranscriptSegments int           `yaml:"max_transcript_segments" mapstructure:"max_transcript_segments"`
	MaxFuzzyDistance      int           `yaml:"max_fuzzy_distance" mapstructure:"max_fuzzy_distance"`
}

// ArtifactsConfig 异步产物等待配置
type ArtifactsConfig struct {
	PollTimeout  time.Duration `yaml:"poll_timeout" mapstructure:"poll_timeout"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// SessionConfig 会话上下文缓存配置
type SessionConfig struct {
	// Backend memory 或 redis
	Backend         string        `yaml:"backend" mapstructure:"backend"`
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxEntries      int           `yaml:"max_entries" mapstructure:"max_entries"`
	IdentityMemoTTL time.Duration `yaml:"identity_memo_ttl" mapstructure:"identity_memo_ttl"`
	IdentityMemoMax int           `yaml:"identity_memo_max" mapstructure:"identity_memo_max"`
}

// MessagingConfig 消息队列配置
type MessagingConfig struct {
	RedisStream RedisStreamConfig `yaml:"redis_stream" mapstructure:"redis_stream"`
}

// RedisStreamConfig Redis Stream 配置
type RedisStreamConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	MaxLen  int  `yaml:"max_len" mapstructure:"max_len"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt" mapstructure:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	Secret   string `yaml:"secret" mapstructure:"secret"`
	Issuer   string `yaml:"issuer" mapstructure:"issuer"`
	Audience string `yaml:"audience" mapstructure:"audience"`
	// PreviousSecrets 密钥轮换期间仍可校验的旧密钥
	PreviousSecrets []string      `yaml:"previous_secrets" mapstructure:"previous_secrets"`
	Leeway          time.Duration `yaml:"leeway" mapstructure:"leeway"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
