// Package db はGORMのデータベース接続とマイグレーションを提供します。
package db

import (
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	authentity "focusflow/internal/feature/auth/domain/entity"
	taskadapters "focusflow/internal/feature/tasks/adapters"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultConnectTimeout = 60 * time.Second
	retryInterval         = 3 * time.Second
)

// Config はデータベース接続設定です。
type Config struct {
	Driver       string // "postgres"（デフォルト）または "sqlite"
	User         string
	Password     string
	Name         string
	Host         string
	Port         string
	SSLMode      string
	InstanceName string // Cloud SQLのインスタンス接続名。指定時はUnixソケットで接続
	SQLitePath   string // DriverSQLiteのときのファイルパス。":memory:" も可
}

// LoadConfigFromEnv は環境変数からデータベース設定を読み込みます。
func LoadConfigFromEnv() Config {
	cfg := Config{
		Driver:       strings.ToLower(os.Getenv("DB_DRIVER")),
		User:         os.Getenv("DB_USER"),
		Password:     os.Getenv("DB_PASSWORD"),
		Name:         os.Getenv("DB_NAME"),
		Host:         os.Getenv("DB_HOST"),
		Port:         os.Getenv("DB_PORT"),
		SSLMode:      os.Getenv("DB_SSLMODE"),
		InstanceName: os.Getenv("INSTANCE_CONNECTION_NAME"),
		SQLitePath:   os.Getenv("DATABASE_PATH"),
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}
	if cfg.Port == "" {
		cfg.Port = "5432"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "focusflow.db"
	}
	return cfg
}

// BuildDSN はPostgreSQL用のkey=value形式のDSNを生成します。
// InstanceNameが設定されている場合はHost/PortよりもCloud SQLのソケットを優先します。
func BuildDSN(cfg Config) string {
	if cfg.InstanceName != "" {
		return fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.InstanceName, cfg.User, cfg.Password, cfg.Name)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
}

// Opener はDSNからgorm.DBを開く関数です。テストで差し替えられます。
type Opener func(dsn string) (*gorm.DB, error)

// slowQueryThreshold を超えたクエリは警告として出力されます。
const slowQueryThreshold = 200 * time.Millisecond

// gormConfig は全ドライバー共通の設定です。
// TranslateErrorによりユニーク制約違反がgorm.ErrDuplicatedKeyに変換されます。
func gormConfig() *gorm.Config {
	return &gorm.Config{TranslateError: true, Logger: newGormLogger(os.Stdout)}
}

// newGormLogger はWarn以上を出力するGORMロガーを返します。
// 登録時のメール重複チェックなど、行が無いことを期待する検索は正常系なので
// ErrRecordNotFoundは出力しません。
func newGormLogger(w io.Writer) logger.Interface {
	return logger.New(log.New(w, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func openPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), gormConfig())
}

func openSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLiteは書き込みが直列化されるため接続を1本にする（:memory: の共有にも必要）
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// ConnectWithRetry はtimeoutに達するまでretryIntervalごとに接続を試みます。
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := open(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying", "error", err, "retry_in", retryInterval)
		time.Sleep(retryInterval)
	}
}

// Open は設定に応じてPostgreSQLまたはSQLiteに接続します。
func Open(cfg Config) (*gorm.DB, error) {
	switch cfg.Driver {
	case DriverSQLite:
		slog.Info("opening SQLite database", "path", cfg.SQLitePath)
		return openSQLite(cfg.SQLitePath)
	case DriverPostgres, "":
		slog.Info("connecting to PostgreSQL", "host", cfg.Host, "instance", cfg.InstanceName, "name", cfg.Name)
		return ConnectWithRetry(BuildDSN(cfg), defaultConnectTimeout, openPostgres)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// Migrate はusersテーブルとtasksテーブルを作成・更新します。
func Migrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}
	if err := db.AutoMigrate(
		&authentity.User{},
		&taskadapters.TaskModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
