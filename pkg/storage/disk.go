// Package storage stores uploaded product images on the local filesystem or
// an S3-compatible bucket (AWS S3, MinIO, R2).
//
//	disk, err := storage.Open(storage.FromEnv())
//	url, err := storage.SaveImage(ctx, disk, header.Filename, contentType, file)
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
)

// Disk is an object store addressed by slash-separated keys.
type Disk interface {
	// Put writes r to key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// URL returns the public URL for key.
	URL(key string) string
}

// Config selects and configures a driver.
type Config struct {
	Driver string // "local" or "s3"

	LocalRoot string
	LocalURL  string

	S3 S3Config
}

// FromEnv reads the STORAGE_* and S3_* settings.
func FromEnv() Config {
	return Config{
		Driver:    config.StorageDefault(),
		LocalRoot: config.StorageLocalRoot(),
		LocalURL:  config.StorageURL(),
		S3: S3Config{
			Bucket:   config.StorageS3Bucket(),
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			URL:      config.StorageS3URL(),
		},
	}
}

// Open returns the configured driver.
func Open(cfg Config) (Disk, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "local":
		return NewLocal(cfg.LocalRoot, cfg.LocalURL)
	case "s3":
		return NewS3(context.Background(), cfg.S3)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

// ImageTypes maps accepted upload content types to file extensions.
var ImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// SaveImage stores an uploaded image under products/ with a random name and
// returns its public URL. Non-image content types are rejected with
// InvalidArgument.
func SaveImage(ctx context.Context, d Disk, filename, contentType string, r io.Reader) (string, error) {
	ext, ok := ImageTypes[strings.ToLower(contentType)]
	if !ok {
		return "", apperr.Invalid(map[string]string{"file": "Only JPEG, PNG, GIF and WebP images are allowed."})
	}
	if e := strings.ToLower(path.Ext(filename)); e == ".jpeg" || e == ext {
		ext = e
	}

	key := "products/" + uuid.NewString() + ext
	if err := d.Put(ctx, key, r, contentType); err != nil {
		return "", apperr.Upstream(err, "Image storage unavailable")
	}
	return d.URL(key), nil
}
