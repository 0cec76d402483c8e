// internal/app/blob/minio.go
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig configures the S3-compatible store.
type MinioConfig struct {
	Endpoint  string // host:port
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// BaseURL, when set, is used to build download URLs (CDN or reverse
	// proxy in front of the bucket). When empty, URLs point directly at
	// the endpoint.
	BaseURL string
}

// Minio is an object store backed by any S3-compatible service.
type Minio struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinio connects to the S3-compatible endpoint and verifies the bucket
// exists, creating it when missing.
func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio storage: endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio storage: connect: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio storage: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio storage: create bucket: %w", err)
		}
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &Minio{client: client, bucket: cfg.Bucket, baseURL: baseURL}, nil
}

func (m *Minio) Put(ctx context.Context, key string, r io.Reader, size int64, opts *PutOptions) error {
	putOpts := minio.PutObjectOptions{}
	if opts != nil {
		putOpts.ContentType = opts.ContentType
		putOpts.UserMetadata = opts.Metadata
	}
	if _, err := m.client.PutObject(ctx, m.bucket, key, r, size, putOpts); err != nil {
		return fmt.Errorf("minio storage: put %q: %w", key, err)
	}
	return nil
}

func (m *Minio) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio storage: get %q: %w", key, err)
	}
	// GetObject is lazy; surface NotFound now so callers can rely on it.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("minio storage: get %q: %w", key, err)
	}
	return obj, nil
}

func (m *Minio) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("minio storage: stat %q: %w", key, err)
	}
	return &ObjectInfo{
		Key:         key,
		Name:        path.Base(key),
		Size:        info.Size,
		ContentType: info.ContentType,
		Metadata:    map[string]string(info.UserMetadata),
	}, nil
}

func (m *Minio) Delete(ctx context.Context, key string) error {
	// RemoveObject on an absent key succeeds, matching the idempotent
	// delete contract.
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio storage: delete %q: %w", key, err)
	}
	return nil
}

func (m *Minio) List(ctx context.Context, prefix string) (Listing, error) {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	var out Listing
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: false}
	for obj := range m.client.ListObjects(ctx, m.bucket, opts) {
		if obj.Err != nil {
			return Listing{}, fmt.Errorf("minio storage: list %q: %w", prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			// Common prefix (simulated subfolder).
			out.Prefixes = append(out.Prefixes, strings.TrimSuffix(obj.Key, "/"))
			continue
		}
		out.Objects = append(out.Objects, ObjectInfo{
			Key:  obj.Key,
			Name: path.Base(obj.Key),
			Size: obj.Size,
		})
	}
	return out, nil
}

func (m *Minio) URL(key string) string {
	return m.baseURL + "/" + strings.TrimPrefix(key, "/")
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}
