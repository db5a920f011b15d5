// Package storage uploads product images to a blob store and returns their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"storefront-api/internal/config"
)

var ErrNotImage = errors.New("file is not an image")

// ImageStore persists an object under folder and returns its public URL.
type ImageStore interface {
	Put(ctx context.Context, folder, name, contentType string, data []byte) (string, error)
}

// New selects the store configured by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (ImageStore, error) {
	switch cfg.Driver {
	case config.StorageDriverLocal:
		return NewLocal(cfg.LocalDir, cfg.PublicBaseURL)
	case config.StorageDriverGCS:
		return NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// DetectImage sniffs data and returns its content type and file extension.
func DetectImage(data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", ErrNotImage
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", "", fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	return mt.String(), mt.Extension(), nil
}

// ObjectName returns a collision-free object name with the given extension.
func ObjectName(ext string) string {
	return uuid.NewString() + ext
}

// FolderName turns a category name into a path-safe folder.
func FolderName(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash && b.Len() > 0 {
			b.WriteByte('-')
			lastDash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "uncategorized"
	}
	return out
}
