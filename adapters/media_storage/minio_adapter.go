package media_storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/internal/config"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

type minioAdapter struct {
	client     *minio.Client
	publicBase string
}

// NewMinioAdapter stores assets in an S3-compatible bucket. Public URLs are
// built from storage.public_base_url, or from the endpoint when unset.
func NewMinioAdapter(cfg config.Config, log logger.Logger) (service.AssetStorage, error) {
	if cfg.Minio.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint has not config")
	}

	cl, err := minio.New(strings.TrimPrefix(strings.TrimPrefix(cfg.Minio.Endpoint, "http://"), "https://"), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot init minio: %w", err)
	}

	log.Info("connect MinIO successfully.")
	return &minioAdapter{client: cl, publicBase: cfg.Storage.PublicBaseURL}, nil
}

// EnsureBucket creates the bucket when missing.
func EnsureBucket(ctx context.Context, s service.AssetStorage, bucket string) error {
	a, ok := s.(*minioAdapter)
	if !ok {
		return nil
	}
	exists, err := a.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		return a.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (a *minioAdapter) Upload(ctx context.Context, bucket, key string, file io.Reader, size int64, contentType string) (string, error) {
	if _, err := a.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err == nil {
		return "", apperror.NewConflict("object", "key", key)
	} else if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return "", fmt.Errorf("failed to stat object: %w", err)
	}

	if size <= 0 {
		size = -1
	}
	_, err := a.client.PutObject(ctx, bucket, key, file, size, putOptions(contentType))
	if err != nil {
		return "", fmt.Errorf("failed to upload minio: %w", err)
	}
	return key, nil
}

func (a *minioAdapter) PublicURL(bucket, objectPath string) (string, error) {
	base := a.publicBase
	if base == "" {
		base = a.client.EndpointURL().String()
	}
	if _, err := url.Parse(base); err != nil {
		return "", fmt.Errorf("invalid public base url: %w", err)
	}
	return url.JoinPath(base, bucket, objectPath)
}

// putOptions marks SVG uploads as downloads so a browser opening the object
// URL does not render script from the bucket origin.
func putOptions(contentType string) minio.PutObjectOptions {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if strings.HasPrefix(contentType, "image/svg+xml") {
		opts.ContentDisposition = "attachment"
	}
	return opts
}
