package wire

import (
	"context"
	"fmt"
	"os"
	"time"

	"ebook-studio-api/internal/application/account"
	"ebook-studio-api/internal/application/ebook"
	"ebook-studio-api/internal/application/export"
	"ebook-studio-api/internal/application/generation"
	"ebook-studio-api/internal/application/publishing"
	"ebook-studio-api/internal/config"
	"ebook-studio-api/internal/domain/repository"
	"ebook-studio-api/internal/infrastructure/llm"
	"ebook-studio-api/internal/infrastructure/messaging"
	"ebook-studio-api/internal/infrastructure/persistence/postgres"
	"ebook-studio-api/internal/infrastructure/persistence/redis"
	"ebook-studio-api/internal/infrastructure/storage"
	"ebook-studio-api/internal/interfaces/http/handler"
	"ebook-studio-api/internal/interfaces/http/router"
	"ebook-studio-api/pkg/logger"
	"ebook-studio-api/pkg/utils"
)

// Worker job-worker 依赖容器
type Worker struct {
	Consumer *messaging.Consumer
	Runner   *publishing.JobRunner
}

// Bootstrap 初始化任务依赖容器
type Bootstrap struct {
	PgClient *postgres.Client
	Accounts *account.Service
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideObjectStore 提供对象存储；未启用时返回 nil 接口
func ProvideObjectStore(ctx context.Context, cfg *config.Config) (publishing.ObjectStore, error) {
	store, err := storage.NewS3Store(&cfg.Storage.S3)
	if err != nil {
		return nil, err
	}
	if store == nil {
		logger.Info(ctx, "object storage disabled, covers stay inline and exports are streamed")
		return nil, nil
	}
	return store, nil
}

// ProvideCoverStore 对象存储启用时上传封面
func ProvideCoverStore(store publishing.ObjectStore) ebook.CoverStore {
	if store == nil {
		return nil
	}
	return publishing.NewCoverUploader(store)
}

// ProvideBookRepository 归档仓储，读路径经 Redis 缓存
func ProvideBookRepository(pg *postgres.Client, cache *redis.Cache, cfg *config.Config) repository.BookRepository {
	return redis.NewCachedBookRepository(postgres.NewBookRepository(pg), cache, cfg.Workflow.ArchiveCacheTTL)
}

// ProvideJobStore 任务状态存储
func ProvideJobStore(client *redis.Client, cfg *config.Config) *redis.JobStore {
	return redis.NewJobStore(client, cfg.Workflow.JobStatusRetention)
}

// ProvideJWTManager 会话令牌签发器
func ProvideJWTManager(cfg *config.Config) *utils.JWTManager {
	return utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer)
}

// ProvideAuthConfig 账户配置
func ProvideAuthConfig(cfg *config.Config) *config.AuthConfig {
	return &cfg.Auth
}

// ProvideGateway 生成网关
func ProvideGateway(cfg *config.Config) *generation.Gateway {
	return generation.NewGateway(llm.NewEinoFactory(cfg), llm.NewGeminiImageGenerator(cfg), generation.OptionsFromConfig(cfg))
}

// ProvideExporter 导出器
func ProvideExporter(cfg *config.Config) *export.Exporter {
	return export.NewExporter(export.NewHTTPCoverResolver(cfg.Workflow.CoverFetchTimeout), cfg.Workflow.Language)
}

// ProvideRegistry 运行注册表，所有运行共享归档与封面存储
func ProvideRegistry(cfg *config.Config, gateway *generation.Gateway, archiver *publishing.Archiver, covers ebook.CoverStore) (*ebook.Registry, error) {
	opts := []ebook.Option{
		ebook.WithSettings(ebook.SettingsFromConfig(&cfg.Workflow)),
		ebook.WithDelays(ebook.DelaysFromConfig(&cfg.Workflow)),
		ebook.WithArchiver(archiver),
	}
	if cfg.Workflow.CallTimeout > 0 {
		opts = append(opts, ebook.WithCallTimeout(cfg.Workflow.CallTimeout))
	}
	if covers != nil {
		opts = append(opts, ebook.WithCoverStore(covers))
	}
	return ebook.NewRegistry(cfg.Workflow.RegistrySize, gateway, opts...)
}

// ProvideHealthHandler 健康检查；对象存储为可选项
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, redisClient *redis.Client, store publishing.ObjectStore) *handler.HealthHandler {
	h := handler.NewHealthHandler(cfg.App.Version, pg, redisClient)
	if checker, ok := store.(handler.HealthChecker); ok {
		h.WithOptional("object_storage", checker)
	}
	return h
}

// ProvideRunHandler 工作流处理器
func ProvideRunHandler(cfg *config.Config, runs *ebook.Registry, exporter *export.Exporter) *handler.RunHandler {
	return handler.NewRunHandler(runs, exporter, handler.DefaultCredential(cfg))
}

// ProvideJobHandler 任务处理器
func ProvideJobHandler(cfg *config.Config, jobs *publishing.JobService) *handler.JobHandler {
	return handler.NewJobHandler(jobs, handler.DefaultCredential(cfg))
}

// ProvideRouterDependencies 中间件依赖
func ProvideRouterDependencies(accounts *account.Service, limiter *redis.RateLimiter) router.Dependencies {
	return router.Dependencies{
		Sessions:     accounts,
		Limiter:      limiter,
		RateLimitKey: redis.BuildRateLimitKey,
	}
}

// ProvideJobRunner 无人值守执行器
func ProvideJobRunner(cfg *config.Config, gateway *generation.Gateway, jobs *redis.JobStore, archiver *publishing.Archiver, covers ebook.CoverStore) *publishing.JobRunner {
	attempts := cfg.Messaging.RedisStream.RetryLimit
	if attempts <= 0 {
		attempts = 3
	}
	return publishing.NewJobRunner(gateway, jobs, archiver, covers, publishing.RunnerConfig{
		Settings:          ebook.SettingsFromConfig(&cfg.Workflow),
		CallTimeout:       cfg.Workflow.CallTimeout,
		ArchiveAttempts:   attempts,
		DefaultCredential: handler.DefaultCredential(cfg),
	})
}

// ProvideConsumer book_gen 消费者，注册执行器为处理函数
func ProvideConsumer(cfg *config.Config, redisClient *redis.Client, runner *publishing.JobRunner) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	group := messaging.ConsumerGroupGenWorker
	if rs.ConsumerGroupPrefix != "" {
		group = messaging.ConsumerGroup(rs.ConsumerGroupPrefix + string(group))
	}
	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamBookGen,
		Group:         group,
		ConsumerName:  consumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    rs.RetryBackoff.Initial,
			Max:        rs.RetryBackoff.Max,
			Multiplier: rs.RetryBackoff.Multiplier,
		},
	})
	consumer.RegisterHandler(messaging.MessageTypeBookGen, runner.Handle)
	return consumer
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().Unix()%1000)
}
