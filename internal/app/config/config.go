// Package config はアプリケーション全体の設定を環境変数から組み立てます。
// 各プラットフォームパッケージの設定型をまとめ、サーバー起動時に一度だけ読み込みます。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"focusflow/internal/platform/db"
	jwtmw "focusflow/internal/platform/jwt"
	"focusflow/internal/platform/redis"
	"focusflow/internal/platform/storage"
)

const (
	defaultPort         = "8080"
	defaultJWTExpire    = 90 * 24 * time.Hour
	defaultClientURL    = "http://localhost:5173"
	defaultTaskCacheTTL = 30 * time.Second
)

// ErrMissingSecret is returned when JWT_SECRET is not set.
var ErrMissingSecret = errors.New("JWT_SECRET is not set")

// Config はサーバーの設定です。
type Config struct {
	Port          string
	JWTSecret     string
	JWTExpire     time.Duration
	RunMigrations bool
	ClientURL     string
	TaskCacheTTL  time.Duration

	DB      db.Config
	Redis   redis.Config
	Storage storage.Config
}

// Load は .env があれば読み込み、環境変数から設定を生成します。
// .env が存在しない場合はシステムの環境変数のみを使います。
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info(".env not found; using system environment variables")
	}
	return FromEnv()
}

// FromEnv は現在の環境変数から設定を生成します。
func FromEnv() (Config, error) {
	cfg := Config{
		Port:          envOr("PORT", defaultPort),
		JWTSecret:     os.Getenv(jwtmw.EnvKeyJWTSecret),
		RunMigrations: true,
		ClientURL:     strings.TrimRight(envOr("CLIENT_URL", defaultClientURL), "/"),
		DB:            db.LoadConfigFromEnv(),
		Redis:         redis.LoadConfigFromEnv(),
		Storage:       storage.LoadConfigFromEnv(),
	}
	if cfg.JWTSecret == "" {
		return Config{}, ErrMissingSecret
	}

	var err error
	if cfg.JWTExpire, err = durationEnv("JWT_EXPIRE_TIME", defaultJWTExpire); err != nil {
		return Config{}, err
	}
	if cfg.TaskCacheTTL, err = durationEnv("TASK_CACHE_TTL", defaultTaskCacheTTL); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("RUN_MIGRATIONS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("RUN_MIGRATIONS: %w", err)
		}
		cfg.RunMigrations = b
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// ParseDuration は time.ParseDuration の形式に加えて "90d" のような日数表記を受け付けます。
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
