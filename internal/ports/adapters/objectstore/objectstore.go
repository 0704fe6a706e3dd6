// Package objectstore publishes downloaded clips to S3-compatible storage.
package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL replaces scheme://endpoint in returned links, e.g. when the
	// bucket sits behind a reverse proxy.
	PublicURL string
}

type Adapter struct {
	client *minio.Client
	cfg    Config
}

func New(cfg Config) (*Adapter, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("objectstore: endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Adapter{client: client, cfg: cfg}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (a *Adapter) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", a.cfg.Bucket, err)
	}
	return nil
}

// Publish uploads localPath under key and returns the object's URL.
func (a *Adapter) Publish(ctx context.Context, localPath, key string) (string, error) {
	if err := a.EnsureBucket(ctx); err != nil {
		return "", err
	}
	_, err := a.client.FPutObject(ctx, a.cfg.Bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return objectURL(a.cfg, key), nil
}

func objectURL(cfg Config, key string) string {
	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return base + "/" + url.PathEscape(cfg.Bucket) + "/" + strings.Join(parts, "/")
}

func contentType(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".mp4":
		return "video/mp4"
	case ".ass":
		return "text/x-ssa"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
