package asset

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
	"github.com/khoahotran/portfolio-cms/pkg/metrics"
)

// File is an uploaded binary as received from the dashboard.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadAssetUseCase struct {
	storage service.AssetStorage
	bucket  string
	now     func() time.Time
	logger  logger.Logger
}

func NewUploadAssetUseCase(s service.AssetStorage, bucket string, log logger.Logger) *UploadAssetUseCase {
	return &UploadAssetUseCase{storage: s, bucket: bucket, now: time.Now, logger: log}
}

func (uc *UploadAssetUseCase) Bucket() string {
	return uc.bucket
}

// Key derives the storage key for a file name: upload time in milliseconds,
// a random uuid and the original extension.
func (uc *UploadAssetUseCase) Key(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("%d-%s%s", uc.now().UnixMilli(), uuid.NewString(), ext)
}

// Execute uploads f to the asset bucket and returns its public URL.
func (uc *UploadAssetUseCase) Execute(ctx context.Context, f File) (string, error) {
	if f.Body == nil {
		return "", apperror.NewInvalidInput("asset file has no content", nil)
	}

	key := uc.Key(f.Name)
	l := uc.logger.With(zap.String("bucket", uc.bucket), zap.String("key", key))

	path, err := uc.storage.Upload(ctx, uc.bucket, key, f.Body, f.Size, f.ContentType)
	metrics.ObserveUpload(uc.bucket, err)
	if err != nil {
		l.Error("Asset upload failed", err)
		return "", apperror.NewInternal("failed to upload asset", err)
	}

	url, err := uc.storage.PublicURL(uc.bucket, path)
	if err != nil {
		l.Error("Cannot resolve asset public URL", err, zap.String("path", path))
		return "", apperror.NewInternal("failed to resolve asset public URL", err)
	}

	l.Info("Asset uploaded", zap.String("url", url))
	return url, nil
}
