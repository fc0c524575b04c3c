package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"dropzone/internal/session"
)

// MinioConfig holds the connection settings for an S3-compatible
// object store.
type MinioConfig struct {
	Endpoint  string // "minio:9000" or "https://minio:9000"
	AccessKey string
	SecretKey string
	Bucket    string
}

// Minio stores blobs in an S3-compatible bucket. Object keys follow
// the same "sessions/<sid>/<uuid>" shape as the local backend.
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio connects to the object store and verifies the bucket
// exists. It fails fast on incomplete configuration so a misconfigured
// deployment never starts accepting uploads it cannot keep.
func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio configuration incomplete")
	}

	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("minio bucket does not exist: %s", cfg.Bucket)
	}

	log.Info().Str("endpoint", endpoint).Str("bucket", cfg.Bucket).Msg("minio storage initialized")
	return &Minio{client: client, bucket: cfg.Bucket}, nil
}

// normaliseEndpoint accepts either "host:port" or a full URL and
// returns the host plus whether to use TLS.
func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	// No scheme, treat as host:port (insecure by default for local MinIO).
	return raw, false, nil
}

func (m *Minio) Put(ctx context.Context, sid session.ID, name, contentType string, r io.Reader, size int64) (PutResult, error) {
	var zero PutResult
	id := uuid.New().String()
	locator := "sessions/" + string(sid) + "/" + id

	info, err := m.client.PutObject(ctx, m.bucket, locator, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return zero, fmt.Errorf("put object: %w", err)
	}

	log.Debug().
		Str("locator", locator).
		Int64("bytes_written", info.Size).
		Msg("blob stored")

	return PutResult{
		ID:        id,
		Locator:   locator,
		SizeBytes: info.Size,
		MediaKind: KindFor(contentType, name),
	}, nil
}

func (m *Minio) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	// GetObject is lazy; stat first so a missing blob surfaces here
	// rather than on the first read.
	if _, err := m.client.StatObject(ctx, m.bucket, locator, minio.StatObjectOptions{}); err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}
	obj, err := m.client.GetObject(ctx, m.bucket, locator, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return obj, nil
}

func (m *Minio) Delete(ctx context.Context, locator string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, locator, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
