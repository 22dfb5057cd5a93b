// Package media stores uploaded images on an external host.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/config"
)

// Uploader puts one object on the media host and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// Service guards uploads before they reach the Uploader.
type Service struct {
	uploader Uploader
	maxSize  int64
}

func NewService(uploader Uploader, maxSize int64) *Service {
	return &Service{uploader: uploader, maxSize: maxSize}
}

// New builds the uploader selected by MEDIA_DRIVER. It returns nil for "none".
func New(ctx context.Context, cfg *config.Config) (Uploader, error) {
	switch cfg.MediaDriver {
	case config.MediaCloudinary:
		return NewCloudinary(cfg), nil
	case config.MediaS3:
		return NewS3(ctx, cfg)
	case config.MediaNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown media driver %q", cfg.MediaDriver)
}

// UploadImage checks size and type, then stores the image under folder.
func (s *Service) UploadImage(ctx context.Context, folder, filename, contentType string, size int64, body io.Reader) (string, error) {
	if s.uploader == nil {
		return "", apperr.Validation("image uploads are not configured")
	}
	if size <= 0 {
		return "", apperr.Validation("file is empty")
	}
	if size > s.maxSize {
		return "", apperr.Validation(fmt.Sprintf("file exceeds the %d byte limit", s.maxSize))
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return "", apperr.Validation("only image files are allowed")
	}

	key := path.Join(folder, uuid.NewString()+strings.ToLower(path.Ext(filename)))
	url, err := s.uploader.Upload(ctx, key, contentType, io.LimitReader(body, s.maxSize), size)
	if err != nil {
		return "", apperr.Internal("failed to upload image", err)
	}
	return url, nil
}
