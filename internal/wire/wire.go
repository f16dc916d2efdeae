//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"vidassist-api/internal/application/artifact"
	"vidassist-api/internal/application/chat"
	"vidassist-api/internal/application/quota"
	"vidassist-api/internal/application/resource"
	"vidassist-api/internal/application/transcript"
	"vidassist-api/internal/application/usage"
	"vidassist-api/internal/config"
	"vidassist-api/internal/domain/repository"
	"vidassist-api/internal/domain/service"
	"vidassist-api/internal/infrastructure/auth"
	"vidassist-api/internal/infrastructure/llm"
	"vidassist-api/internal/infrastructure/persistence/postgres"
	"vidassist-api/internal/infrastructure/persistence/redis"
	"vidassist-api/internal/infrastructure/provider"
	"vidassist-api/internal/infrastructure/storage"
	"vidassist-api/internal/interfaces/http/handler"
	"vidassist-api/internal/interfaces/http/middleware"
	"vidassist-api/internal/interfaces/http/router"
)

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		postgres.NewOwnerRepository,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		UsageSet,
		ProviderSet,
		ServiceSet,
		RouterSet,
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewVideoRepository,
	postgres.NewTranscriptRepository,
	postgres.NewTitleRepository,
	postgres.NewImageRepository,
	postgres.NewUsageEventRepository,
	postgres.NewOwnerRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.VideoRepository), new(*postgres.VideoRepository)),
	wire.Bind(new(repository.TranscriptRepository), new(*postgres.TranscriptRepository)),
	wire.Bind(new(repository.TitleRepository), new(*postgres.TitleRepository)),
	wire.Bind(new(repository.ImageRepository), new(*postgres.ImageRepository)),
	wire.Bind(new(repository.UsageEventRepository), new(*postgres.UsageEventRepository)),
	wire.Bind(new(repository.OwnerRepository), new(*postgres.OwnerRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	redis.NewTokenRevocations,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
	wire.Bind(new(auth.RevocationList), new(*redis.TokenRevocations)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
)

// UsageSet 计量与套餐
var UsageSet = wire.NewSet(
	ProvideBackground,
	ProvideIdentityMemo,
	ProvideUsageRecorder,
	ProvideEntitlements,
	usage.NewMeter,
	wire.Bind(new(service.Metering), new(*quota.UsageRecorder)),
	wire.Bind(new(service.Entitlements), new(*quota.Entitlements)),
	wire.Bind(new(resource.LimitChecker), new(*quota.Entitlements)),
	wire.Bind(new(resource.UsageRecorder), new(*usage.Meter)),
)

// ProviderSet 外部提供方
var ProviderSet = wire.NewSet(
	ProvideTranscriptProvider,
	ProvideVideoDetails,
	ProvideImageProvider,
	ProvideObjectStore,
	ProvideModelFactory,
	llm.NewTextGenerator,
	wire.Bind(new(service.TranscriptProvider), new(*provider.TranscriptClient)),
	wire.Bind(new(service.VideoDetailsProvider), new(*redis.VideoDetailsCache)),
	wire.Bind(new(service.ImageProvider), new(*provider.OpenAIImageClient)),
	wire.Bind(new(service.ObjectStore), new(*storage.S3Store)),
	wire.Bind(new(service.TextGenerator), new(*llm.TextGenerator)),
)

// ServiceSet 应用服务
var ServiceSet = wire.NewSet(
	transcript.NewService,
	resource.NewVideoService,
	artifact.NewTitleService,
	ProvideImageService,
	ProvideSessionStore,
	ProvideOrchestrator,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideAuthConfig,
	ProvideRateLimitKey,
	ProvideJWTManager,
	auth.NewJWTAuthenticator,
	wire.Bind(new(service.Authenticator), new(*auth.JWTAuthenticator)),
	ProvideHealthHandler,
	handler.NewTranscriptHandler,
	handler.NewResourceHandler,
	handler.NewChatHandler,
	handler.NewArtifactHandler,
	wire.Bind(new(handler.TranscriptFetcher), new(*transcript.Service)),
	wire.Bind(new(handler.VideoResources), new(*resource.VideoService)),
	wire.Bind(new(handler.TurnStarter), new(*chat.Orchestrator)),
	wire.Bind(new(handler.Titles), new(*artifact.TitleService)),
	wire.Bind(new(handler.Images), new(*artifact.ImageService)),
	wire.Struct(new(router.Security), "*"),
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)
