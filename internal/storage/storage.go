// Package storage keeps uploaded listing images outside the database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shinyyama/campus-market/internal/config"
)

// MaxImageSize is the largest accepted upload in bytes.
const MaxImageSize = 5 << 20

const objectPrefix = "item_images/"

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image too large")
)

// ImageStore saves image bytes and hands back the URL they are served from.
type ImageStore interface {
	Save(ctx context.Context, data []byte, contentType string) (string, error)
	// Delete removes a previously saved image. Unknown URLs are ignored.
	Delete(ctx context.Context, url string) error
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Detect sniffs data and returns its content type when it is an accepted image.
func Detect(data []byte) (string, error) {
	if len(data) > MaxImageSize {
		return "", ErrImageTooLarge
	}
	ct := http.DetectContentType(data)
	if _, ok := extensions[ct]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, ct)
	}
	return ct, nil
}

func objectName(contentType string) string {
	return objectPrefix + uuid.NewString() + extensions[contentType]
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (ImageStore, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.MediaDir, cfg.MediaURL), nil
	case "gcs":
		return NewGCSStore(ctx, cfg.Bucket, cfg.CredentialsFile)
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.Backend)
	}
}
