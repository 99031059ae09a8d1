package storage

import (
	"context"
	"io"
)

// UploadInput — загружаемый файл с его content type.
type UploadInput struct {
	ContentType string
	Body        io.Reader
}

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader абстрагирует объектное хранилище логотипов. Ключи задаёт
// вызывающая сторона, публичные URL строятся от настроенной базы.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}
