package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
)

const defaultPublicHost = "https://storage.googleapis.com"

type GCSConfig struct {
	Bucket string
	// PublicURL replaces the storage.googleapis.com/<bucket> prefix of
	// returned links, e.g. a CDN in front of the bucket.
	PublicURL string
	// UniformAccess skips per-object ACLs; the bucket policy must then
	// grant public read.
	UniformAccess bool
}

// Bucket stores uploads as publicly readable GCS objects.
type Bucket struct {
	client *gcs.Client
	cfg    GCSConfig
}

func NewBucket(ctx context.Context, cfg GCSConfig) (*Bucket, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs: bucket name required")
	}
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: new client: %w", err)
	}
	return &Bucket{client: c, cfg: cfg}, nil
}

func (b *Bucket) Close() error { return b.client.Close() }

func (b *Bucket) Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (string, error) {
	w := b.client.Bucket(b.cfg.Bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=3600"
	if !b.cfg.UniformAccess {
		w.PredefinedACL = "publicRead"
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs: write %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs: finalize %s: %w", objectName, err)
	}
	return b.cfg.objectURL(objectName), nil
}

func (c GCSConfig) objectURL(objectName string) string {
	base := strings.TrimRight(c.PublicURL, "/")
	if base == "" {
		base = defaultPublicHost + "/" + c.Bucket
	}
	parts := strings.Split(objectName, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return base + "/" + strings.Join(parts, "/")
}
