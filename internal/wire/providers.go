package wire

import (
	"context"
	"strings"
	"time"

	"vidassist-api/internal/application/artifact"
	"vidassist-api/internal/application/chat"
	"vidassist-api/internal/application/poller"
	"vidassist-api/internal/application/quota"
	"vidassist-api/internal/application/transcript"
	"vidassist-api/internal/application/usage"
	"vidassist-api/internal/config"
	"vidassist-api/internal/domain/repository"
	"vidassist-api/internal/domain/service"
	"vidassist-api/internal/infrastructure/llm"
	"vidassist-api/internal/infrastructure/messaging"
	"vidassist-api/internal/infrastructure/persistence/memory"
	"vidassist-api/internal/infrastructure/persistence/postgres"
	"vidassist-api/internal/infrastructure/persistence/redis"
	"vidassist-api/internal/infrastructure/provider"
	"vidassist-api/internal/infrastructure/storage"
	"vidassist-api/internal/interfaces/http/handler"
	"vidassist-api/internal/interfaces/http/middleware"
	"vidassist-api/pkg/logger"
	"vidassist-api/pkg/utils"
)

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient  *postgres.Client
	OwnerRepo *postgres.OwnerRepository
}

// ProvidePostgresClient 提供 PostgreSQL 客户端；开启 auto_migrate 时同步表结构
func ProvidePostgresClient(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(ctx, &cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	if cfg.Database.Postgres.AutoMigrate {
		if err := client.AutoMigrate(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者；未启用时返回 nil
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	if !cfg.Messaging.RedisStream.Enabled {
		return nil
	}
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideBackground 提供后台任务执行器，关闭时等待在途任务
func ProvideBackground() (*usage.Background, func()) {
	bg := usage.NewBackground(256)
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := bg.Close(ctx); err != nil {
			logger.Warn(ctx, "background tasks not drained", "error", err.Error())
		}
	}
	return bg, cleanup
}

// ProvideSessionStore 按配置选择会话缓存后端
func ProvideSessionStore(cfg *config.Config, redisClient *redis.Client) service.SessionStore {
	if strings.EqualFold(cfg.Session.Backend, "redis") {
		return redis.NewSessionStore(redisClient, cfg.Session.TTL)
	}
	return memory.NewSessionStore(cfg.Session.MaxEntries, cfg.Session.TTL)
}

// ProvideIdentityMemo 提供进程内身份登记记忆
func ProvideIdentityMemo(cfg *config.Config) usage.IdentityMemo {
	return memory.NewIdentityMemo(cfg.Session.IdentityMemoMax, cfg.Session.IdentityMemoTTL)
}

// ProvideUsageRecorder 提供计量提供方；消息流未启用时只落库
func ProvideUsageRecorder(cfg *config.Config, owners repository.OwnerRepository, usageRepo repository.UsageEventRepository, producer *messaging.Producer, bg *usage.Background) *quota.UsageRecorder {
	var publisher quota.UsagePublisher
	if producer != nil {
		publisher = producer
	}
	return quota.NewUsageRecorder(owners, usageRepo, publisher, bg, cfg.Entitlements.DefaultPlan)
}

// ProvideEntitlements 提供套餐判定
func ProvideEntitlements(cfg *config.Config, owners repository.OwnerRepository, usageRepo repository.UsageEventRepository) *quota.Entitlements {
	return quota.NewEntitlements(cfg.Entitlements, owners, usageRepo)
}

// ProvideObjectStore 提供对象存储
func ProvideObjectStore(ctx context.Context, cfg *config.Config) (*storage.S3Store, error) {
	return storage.NewS3Store(ctx, cfg.Storage.S3)
}

// ProvideTranscriptProvider 提供字幕提取客户端
func ProvideTranscriptProvider(cfg *config.Config) *provider.TranscriptClient {
	return provider.NewTranscriptClient(cfg.Providers.Transcript)
}

// ProvideVideoDetails 提供带 Redis 读穿缓存的视频信息
func ProvideVideoDetails(cfg *config.Config, cache *redis.Cache) *redis.VideoDetailsCache {
	return redis.NewVideoDetailsCache(cache, provider.NewYouTubeClient(cfg.Providers.VideoDetails), cfg.Cache.VideoDetailsTTL)
}

// ProvideImageProvider 提供图像生成客户端
func ProvideImageProvider(cfg *config.Config) *provider.OpenAIImageClient {
	return provider.NewOpenAIImageClient(cfg.Providers.Image)
}

// ProvideModelFactory 创建模型工厂并预热默认模型
func ProvideModelFactory(ctx context.Context, cfg *config.Config) (*llm.EinoFactory, error) {
	factory := llm.NewEinoFactory(cfg)
	if err := factory.Warm(ctx); err != nil {
		return nil, err
	}
	return factory, nil
}

// ProvideImageService 提供缩略图服务
func ProvideImageService(
	cfg *config.Config,
	images repository.ImageRepository,
	entitlements service.Entitlements,
	meter *usage.Meter,
	generator service.ImageProvider,
	objects service.ObjectStore,
) *artifact.ImageService {
	return artifact.NewImageService(images, entitlements, meter, generator, objects, poller.Config{
		Artifact: "image",
		Timeout:  cfg.Artifacts.PollTimeout,
		Interval: cfg.Artifacts.PollInterval,
	})
}

// ProvideOrchestrator 提供对话编排器
func ProvideOrchestrator(
	cfg *config.Config,
	models *llm.EinoFactory,
	sessions service.SessionStore,
	details service.VideoDetailsProvider,
	transcripts *transcript.Service,
	titles *artifact.TitleService,
	images *artifact.ImageService,
	bg *usage.Background,
	producer *messaging.Producer,
) *chat.Orchestrator {
	var sink chat.FinalMessageSink = chat.LogSink{}
	if producer != nil {
		sink = producer
	}
	return chat.NewOrchestrator(chat.Config{
		TurnTimeout:           cfg.Chat.TurnTimeout,
		MaxToolRounds:         cfg.Chat.MaxToolRounds,
		MaxTranscriptSegments: cfg.Chat.MaxTranscriptSegments,
		MaxFuzzyDistance:      cfg.Chat.MaxFuzzyDistance,
	}, chat.Dependencies{
		Models:      models,
		Sessions:    sessions,
		Details:     details,
		Transcripts: transcripts,
		Titles:      titles,
		Images:      images,
		Background:  bg,
		Sink:        sink,
	})
}

// ProvideJWTManager 提供 JWT 管理器
func ProvideJWTManager(cfg *config.Config) *utils.JWTManager {
	jwtCfg := cfg.Security.JWT
	return utils.NewJWTManager(jwtCfg.Secret, jwtCfg.Issuer,
		utils.WithAudience(jwtCfg.Audience),
		utils.WithLeeway(jwtCfg.Leeway),
		utils.WithPreviousSecrets(jwtCfg.PreviousSecrets...),
	)
}

// ProvideAuthConfig 提供认证配置
func ProvideAuthConfig() middleware.AuthConfig {
	return middleware.AuthConfig{
		SkipPaths: middleware.DefaultSkipPaths,
		Enabled:   true,
	}
}

// ProvideRateLimitKey 提供限流键构造
func ProvideRateLimitKey() middleware.KeyFunc {
	return redis.BuildRateLimitKey
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, redisClient *redis.Client, store *storage.S3Store) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version,
		handler.Dependency{Name: "postgres", Checker: pg},
		handler.Dependency{Name: "redis", Checker: redisClient},
		handler.Dependency{Name: "object_store", Checker: store, Optional: true},
	)
}
