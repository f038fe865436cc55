//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"ebook-studio-api/internal/application/account"
	"ebook-studio-api/internal/application/publishing"
	"ebook-studio-api/internal/config"
	"ebook-studio-api/internal/domain/repository"
	"ebook-studio-api/internal/infrastructure/messaging"
	"ebook-studio-api/internal/infrastructure/persistence/postgres"
	"ebook-studio-api/internal/infrastructure/persistence/redis"
	"ebook-studio-api/internal/interfaces/http/handler"
	"ebook-studio-api/internal/interfaces/http/router"
)

// InitializeApp 初始化 API 网关（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		PostgresSet,
		RedisSet,
		AccountSet,
		PublishingSet,
		MessagingSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化 job-worker
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		PostgresSet,
		RedisSet,
		PublishingSet,
		ProvideJobRunner,
		ProvideConsumer,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializeBootstrap 初始化建表与种子账户所需依赖
func InitializeBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		RedisSet,
		AccountSet,
		wire.Struct(new(Bootstrap), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	ProvideJobStore,
	wire.Bind(new(repository.JobRepository), new(*redis.JobStore)),
)

// AccountSet 账户与会话
var AccountSet = wire.NewSet(
	redis.NewUserStore,
	redis.NewSessionStore,
	wire.Bind(new(repository.UserRepository), new(*redis.UserStore)),
	wire.Bind(new(repository.SessionRepository), new(*redis.SessionStore)),
	ProvideJWTManager,
	ProvideAuthConfig,
	account.NewService,
)

// PublishingSet 生成、归档与对象存储
var PublishingSet = wire.NewSet(
	ProvideBookRepository,
	ProvideObjectStore,
	ProvideCoverStore,
	ProvideGateway,
	publishing.NewArchiver,
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	wire.Bind(new(publishing.JobPublisher), new(*messaging.Producer)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideExporter,
	ProvideRegistry,
	publishing.NewBookService,
	publishing.NewJobService,
	ProvideHealthHandler,
	handler.NewAuthHandler,
	handler.NewUserHandler,
	handler.NewCatalogHandler,
	ProvideRunHandler,
	handler.NewBookHandler,
	ProvideJobHandler,
	wire.Bind(new(handler.AccountService), new(*account.Service)),
	wire.Bind(new(handler.UserAdmin), new(*account.Service)),
	ProvideRouterDependencies,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
