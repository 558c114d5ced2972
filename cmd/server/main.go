package main

import (
	"context"
	"log"
	"log/slog"

	redisv9 "github.com/redis/go-redis/v9"

	"focusflow/internal/app/config"
	"focusflow/internal/app/di"
	"focusflow/internal/app/router"
	authadapters "focusflow/internal/feature/auth/adapters"
	authhandler "focusflow/internal/feature/auth/transport/handler"
	authusecase "focusflow/internal/feature/auth/usecase"
	taskhandler "focusflow/internal/feature/tasks/transport/handler"
	taskusecase "focusflow/internal/feature/tasks/usecase"
	"focusflow/internal/platform/db"
	"focusflow/internal/platform/http/handler"
	jwtmw "focusflow/internal/platform/jwt"
	infraredis "focusflow/internal/platform/redis"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// db
	gdb, err := db.Open(cfg.DB)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(gdb); err != nil {
			log.Fatal(err)
		}
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatal(err)
	}
	checks := []handler.Check{{Name: "db", Ping: sqlDB.PingContext}}

	// Redis（未設定または接続失敗時はキャッシュなしで動作）
	var rdb *redisv9.Client
	if cfg.Redis.Enabled() {
		if tmp, err := infraredis.NewRedisClient(ctx, cfg.Redis); err != nil {
			slog.Warn("Redis unavailable. Running without cache.", "error", err)
		} else {
			rdb = tmp
			defer func() {
				if err := rdb.Close(); err != nil {
					slog.Error("failed to close Redis client", "error", err)
				}
			}()
			checks = append(checks, handler.Check{Name: "redis", Ping: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}})
		}
	}

	// Storage
	avatars, uploadDir, err := di.NewAvatarStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize avatar storage: %v", err)
	}

	// Repository
	userRepo := authadapters.NewUserGorm(gdb)
	taskRepo := di.NewTaskRepository(gdb, rdb, cfg.TaskCacheTTL)

	// Usecase
	tokens := jwtmw.NewGenerator(cfg.JWTSecret, cfg.JWTExpire)
	authUC := authusecase.NewAuthUsecase(userRepo, tokens, tokens, avatars)
	taskUC := taskusecase.NewTaskUsecase(taskRepo)

	// Handler
	authH := authhandler.NewAuthHandler(authUC, cfg.JWTExpire)
	taskH := taskhandler.NewTaskHandler(taskUC)

	// ルータ生成
	r := router.NewRouter(router.Params{
		Auth:      authH,
		Tasks:     taskH,
		Verifier:  authUC,
		ClientURL: cfg.ClientURL,
		UploadDir: uploadDir,
		Checks:    checks,
	})

	slog.Info("server starting", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
