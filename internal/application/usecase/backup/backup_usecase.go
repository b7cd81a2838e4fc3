package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
	"github.com/khoahotran/portfolio-cms/pkg/metrics"
)

// SnapshotSource yields the portfolio content to back up.
type SnapshotSource interface {
	Execute(ctx context.Context) (*service.PortfolioSnapshot, error)
}

// Result describes one stored backup.
type Result struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type BackupUseCase struct {
	source  SnapshotSource
	storage service.AssetStorage
	bucket  string
	now     func() time.Time
	logger  logger.Logger
}

func NewBackupUseCase(source SnapshotSource, storage service.AssetStorage, bucket string, log logger.Logger) *BackupUseCase {
	return &BackupUseCase{source: source, storage: storage, bucket: bucket, now: time.Now, logger: log}
}

// Execute writes the current portfolio snapshot as a JSON document to the
// backup bucket. A partial snapshot is refused.
func (uc *BackupUseCase) Execute(ctx context.Context) (*Result, error) {
	uc.logger.Info("Starting content backup...")

	snap, err := uc.source.Execute(ctx)
	if err != nil {
		return nil, err
	}
	if len(snap.Errors) > 0 {
		failed := make([]string, 0, len(snap.Errors))
		for name := range snap.Errors {
			failed = append(failed, name)
		}
		sort.Strings(failed)
		return nil, apperror.NewUpstream(fmt.Sprintf("cannot back up partial content, failed: %s", strings.Join(failed, ", ")))
	}

	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, apperror.NewInternal("failed to encode backup", err)
	}

	timestamp := uc.now().UTC().Format("2006-01-02_15-04-05")
	key := fmt.Sprintf("portfolio-%s.json", timestamp)

	path, err := uc.storage.Upload(ctx, uc.bucket, key, bytes.NewReader(body), int64(len(body)), "application/json")
	metrics.ObserveUpload(uc.bucket, err)
	if err != nil {
		uc.logger.Error("Failed to upload backup", err, zap.String("key", key))
		return nil, apperror.NewInternal("failed to upload backup", err)
	}

	url, err := uc.storage.PublicURL(uc.bucket, path)
	if err != nil {
		return nil, apperror.NewInternal("failed to resolve backup URL", err)
	}

	uc.logger.Info("Content backup completed and uploaded successfully",
		zap.String("url", url),
		zap.String("key", key),
	)
	return &Result{Key: key, URL: url}, nil
}
