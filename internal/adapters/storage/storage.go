package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"velvetden/internal/domain"
)

// Config selects and configures the file store.
type Config struct {
	Provider  string // "s3" or "local"
	LocalDir  string
	S3        S3Config
	KeyPrefix string
}

// NewFileStore creates the FileStore named by cfg.Provider. Unknown providers fall back to local disk.
func NewFileStore(ctx context.Context, cfg Config) (domain.FileStore, error) {
	prefix := strings.Trim(cfg.KeyPrefix, "/")
	if prefix == "" {
		prefix = "uploads"
	}
	switch cfg.Provider {
	case "s3":
		return NewS3Store(ctx, cfg.S3, prefix)
	default:
		return NewLocalStore(cfg.LocalDir, prefix)
	}
}

// objectKey builds a collision-free key for an upload, keeping the original extension.
func objectKey(prefix, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 8 {
		ext = ""
	}
	return fmt.Sprintf("%s/%s/%s%s", prefix, now.UTC().Format("2006/01/02"), uuid.NewString(), ext)
}
