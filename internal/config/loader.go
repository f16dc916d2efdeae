// Package config 提供配置加载功能
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load 读取 CONFIG_DIR（默认 configs）下的配置
func Load() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "configs"
	}
	return LoadFrom(dir)
}

// LoadFrom 依次合并 config.yaml、config.<APP_ENV>.yaml 与环境变量，两个文件都可缺省
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	for _, name := range []string{"config.yaml", "config." + env + ".yaml"} {
		if err := mergeFile(v, filepath.Join(dir, name)); err != nil {
			return nil, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// mergeFile 展开 ${VAR:default} 后合并进 viper；文件不存在时跳过
func mergeFile(v *viper.Viper, path string) error {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.MergeConfig(strings.NewReader(expandEnv(string(content)))); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ${VAR} 或 ${VAR:default}；未定义且无默认值的占位符原样保留
var envPattern = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := envPattern.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(m[1]); ok {
			return val
		}
		if strings.Contains(match, ":") {
			return m[2]
		}
		return match
	})
}

const placeholderSecret = "change-me"

// Validate 启动前拒绝明显错误的组合，全部问题一次性返回
func (c *Config) Validate() error {
	var errs []error
	if c.App.Env == "production" && (c.Security.JWT.Secret == "" || c.Security.JWT.Secret == placeholderSecret) {
		errs = append(errs, errors.New("security.jwt.secret must be set in production"))
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("session.backend %q is not one of memory, redis", c.Session.Backend))
	}
	if r := c.Observability.Tracing.SampleRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("observability.tracing.sample_rate %v out of [0,1]", r))
	}
	if c.Chat.TurnTimeout <= 0 {
		errs = append(errs, errors.New("chat.turn_timeout must be positive"))
	} else if wt := c.Server.HTTP.WriteTimeout; wt > 0 && wt < c.Chat.TurnTimeout {
		errs = append(errs, fmt.Errorf("server.http.write_timeout %s is shorter than chat.turn_timeout %s", wt, c.Chat.TurnTimeout))
	}
	if a := c.Artifacts; a.PollInterval <= 0 || a.PollInterval >= a.PollTimeout {
		errs = append(errs, fmt.Errorf("artifacts.poll_interval %s must be positive and below poll_timeout %s", a.PollInterval, a.PollTimeout))
	}
	return errors.Join(errs...)
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vidassist-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	// 流式对话最长 120s，写超时需要覆盖
	v.SetDefault("server.http.write_timeout", "150s")
	v.SetDefault("server.http.idle_timeout", "120s")

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "vidassist")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 50)
	v.SetDefault("database.postgres.max_idle_conns", 10)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")
	v.SetDefault("database.postgres.conn_max_idle_time", "5m")
	v.SetDefault("database.postgres.auto_migrate", false)

	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 100)
	v.SetDefault("cache.redis.min_idle_conns", 10)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")
	v.SetDefault("cache.video_details_ttl", "1h")

	v.SetDefault("storage.s3.region", "auto")
	v.SetDefault("storage.s3.prefix", "thumbnails")
	v.SetDefault("storage.s3.presign_ttl", "1h")

	v.SetDefault("llm.default_provider", "openai")
	v.SetDefault("llm.retry.max_retries", 2)
	v.SetDefault("llm.retry.base_delay", "500ms")
	v.SetDefault("llm.retry.max_delay", "4s")

	v.SetDefault("providers.transcript.timeout", "20s")
	v.SetDefault("providers.transcript.retry.max_retries", 2)
	v.SetDefault("providers.video_details.base_url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("providers.video_details.timeout", "10s")
	v.SetDefault("providers.video_details.retry.max_retries", 1)
	v.SetDefault("providers.image.model", "dall-e-3")
	v.SetDefault("providers.image.size", "1792x1024")
	v.SetDefault("providers.image.timeout", "90s")
	v.SetDefault("providers.image.retry.max_retries", 1)

	v.SetDefault("entitlements.default_plan", "free")
	v.SetDefault("entitlements.period", "720h")

	v.SetDefault("chat.turn_timeout", "120s")
	v.SetDefault("chat.max_tool_rounds", 4)
	v.SetDefault("chat.max_transcript_segments", 60)
	v.SetDefault("chat.max_fuzzy_distance", 1)

	v.SetDefault("artifacts.poll_timeout", "60s")
	v.SetDefault("artifacts.poll_interval", "1500ms")

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", "6h")
	v.SetDefault("session.max_entries", 10000)
	v.SetDefault("session.identity_memo_ttl", "24h")
	v.SetDefault("session.identity_memo_max", 50000)

	v.SetDefault("messaging.redis_stream.enabled", true)
	v.SetDefault("messaging.redis_stream.max_len", 100000)

	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 无默认值的键不会被 AutomaticEnv 解到结构体，这里登记空值
	v.SetDefault("security.jwt.secret", "")
	v.SetDefault("security.jwt.issuer", "vidassist")
	v.SetDefault("security.jwt.leeway", "30s")
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_second", 20)
	v.SetDefault("security.rate_limit.burst", 40)
}

// normalize 补齐无法用 viper 默认值表达的结构（如套餐表）
func normalize(cfg *Config) {
	if len(cfg.Entitlements.Plans) == 0 {
		cfg.Entitlements.Plans = DefaultPlans()
	}
	if _, ok := cfg.Entitlements.Plans[cfg.Entitlements.DefaultPlan]; !ok {
		cfg.Entitlements.DefaultPlan = "free"
		if _, ok := cfg.Entitlements.Plans["free"]; !ok {
			cfg.Entitlements.Plans["free"] = DefaultPlans()["free"]
		}
	}
}

// DefaultPlans 内置套餐：free 只开放视频分析与字幕，pro 全部开放
func DefaultPlans() map[string]PlanConfig {
	return map[string]PlanConfig{
		"free": {Features: map[string]FeatureConfig{
			"analyse-video":     {Enabled: true, Allocation: 5},
			"transcription":     {Enabled: true, Allocation: 5},
			"title-generations": {Enabled: false},
			"image-generation":  {Enabled: false},
		}},
		"pro": {Features: map[string]FeatureConfig{
			"analyse-video":     {Enabled: true, Allocation: 0},
			"transcription":     {Enabled: true, Allocation: 0},
			"title-generations": {Enabled: true, Allocation: 100},
			"image-generation":  {Enabled: true, Allocation: 30},
		}},
	}
}
