// Package main 初始化归档表结构与种子账户
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"ebook-studio-api/internal/application/account"
	"ebook-studio-api/internal/config"
	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/wire"
	apperrors "ebook-studio-api/pkg/errors"
	"ebook-studio-api/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx := context.Background()
	logger.Info(ctx, "starting bootstrap")

	deps, cleanup, err := wire.InitializeBootstrap(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize dependencies", err)
	}
	defer cleanup()

	// 1. 归档表
	if err := deps.PgClient.AutoMigrate(ctx); err != nil {
		logger.Fatal(ctx, "failed to migrate schema", err)
	}
	logger.Info(ctx, "schema migrated")

	// 2. 配置中的种子账户
	if err := deps.Accounts.SeedUsers(ctx); err != nil {
		logger.Fatal(ctx, "failed to seed users", err)
	}
	logger.Info(ctx, "seed accounts ensured", "count", len(cfg.Auth.SeedUsers))

	// 3. 可选：由环境变量指定的管理员
	adminEmail := os.Getenv("BOOTSTRAP_ADMIN_EMAIL")
	adminPassword := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if adminEmail != "" && adminPassword != "" {
		_, err := deps.Accounts.AddUser(ctx, account.AddUserInput{
			Email:    adminEmail,
			Name:     "System Admin",
			Password: adminPassword,
			Role:     entity.UserRoleAdmin,
		})
		switch {
		case err == nil:
			logger.Info(ctx, "admin user created", "email", adminEmail)
		case apperrors.CodeOf(err) == apperrors.CodeConflict:
			logger.Info(ctx, "admin user already exists", "email", adminEmail)
		default:
			logger.Fatal(ctx, "failed to create admin user", err)
		}
	}

	logger.Info(ctx, "bootstrap completed")
}
