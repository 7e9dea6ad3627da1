// storage.go
package s3

import (
	"context"
	"time"
)

// Storage определяет интерфейс для работы с S3-совместимым хранилищем.
// Ключи объектов формируются как <id файла>.<расширение из имени>.
type Storage interface {
	UploadBytes(ctx context.Context, key string, data []byte) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
}
