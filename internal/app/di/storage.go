// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"fmt"

	authusecase "focusflow/internal/feature/auth/usecase"
	"focusflow/internal/platform/storage"
)

// NewAvatarStorage selects the avatar backend from cfg.
// For the local backend it also returns the directory to serve under the public prefix;
// for S3 the directory is empty because objects are served by the bucket.
func NewAvatarStorage(ctx context.Context, cfg storage.Config) (authusecase.AvatarStorage, string, error) {
	switch cfg.Backend {
	case storage.BackendS3:
		s, err := storage.NewS3(ctx, cfg)
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	case storage.BackendLocal, "":
		l, err := storage.NewLocal(cfg.UploadDir, cfg.PublicPrefix)
		if err != nil {
			return nil, "", err
		}
		return l, l.Dir(), nil
	default:
		return nil, "", fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.Backend)
	}
}
