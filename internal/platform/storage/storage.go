// Package storage はアップロードされたアバター画像の保存先を提供します。
// ローカルディスクとS3互換バケットの2種類があり、どちらも参照文字列（パスまたはURL）を返します。
package storage

import (
	"errors"
	"os"
	"path"
	"strings"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// ErrInvalidKey is returned for keys that are empty, absolute, or escape the storage root.
var ErrInvalidKey = errors.New("invalid storage key")

// Config はアバター保存先の設定です。
type Config struct {
	Backend string // "local"（デフォルト）または "s3"

	// local
	UploadDir    string // 保存先ディレクトリ
	PublicPrefix string // 返却するパスの接頭辞

	// s3
	S3Bucket    string
	S3Region    string
	S3Endpoint  string // MinIO等のS3互換エンドポイント。空ならAWS
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string // 公開URLの接頭辞。空なら s3://bucket/key を返す
}

// LoadConfigFromEnv は STORAGE_BACKEND / UPLOAD_DIR / S3_* を読み込みます。
func LoadConfigFromEnv() Config {
	cfg := Config{
		Backend:      strings.ToLower(os.Getenv("STORAGE_BACKEND")),
		UploadDir:    os.Getenv("UPLOAD_DIR"),
		PublicPrefix: "/uploads",
		S3Bucket:     os.Getenv("S3_BUCKET"),
		S3Region:     os.Getenv("S3_REGION"),
		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
		S3AccessKey:  os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:  os.Getenv("S3_SECRET_KEY"),
		S3PublicURL:  strings.TrimRight(os.Getenv("S3_PUBLIC_URL"), "/"),
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendLocal
		if cfg.S3Bucket != "" {
			cfg.Backend = BackendS3
		}
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.S3Region == "" {
		cfg.S3Region = "us-east-1"
	}
	return cfg
}

// cleanKey はスラッシュ区切りの相対キーを正規化し、ルート外を指すものを拒否します。
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
