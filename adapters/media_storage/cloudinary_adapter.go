package media_storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/internal/config"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

type cloudinaryAdapter struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryAdapter stores assets in Cloudinary, using the bucket as the
// folder and the key without extension as the public id.
func NewCloudinaryAdapter(cfg config.Config, log logger.Logger) (service.AssetStorage, error) {
	if cfg.Cloudinary.CloudName == "" {
		return nil, fmt.Errorf("cloudinary cloud_name has not config")
	}

	cld, err := cloudinary.NewFromParams(
		cfg.Cloudinary.CloudName,
		cfg.Cloudinary.ApiKey,
		cfg.Cloudinary.ApiSecret,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot init cloudinary: %w", err)
	}

	log.Info("connect Cloudinary successfully.")
	return &cloudinaryAdapter{cld: cld}, nil
}

// Upload returns the delivery URL as the object path.
func (a *cloudinaryAdapter) Upload(ctx context.Context, bucket, key string, file io.Reader, _ int64, _ string) (string, error) {
	uploadParams := uploader.UploadParams{
		PublicID:  strings.TrimSuffix(key, path.Ext(key)),
		Folder:    bucket,
		Overwrite: api.Bool(false),
	}
	result, err := a.cld.Upload.Upload(ctx, file, uploadParams)
	if err != nil {
		return "", fmt.Errorf("failed to upload cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload cloudinary: %s", result.Error.Message)
	}
	return result.SecureURL, nil
}

func (a *cloudinaryAdapter) PublicURL(bucket, objectPath string) (string, error) {
	if u, err := url.Parse(objectPath); err == nil && u.IsAbs() {
		return objectPath, nil
	}
	img, err := a.cld.Image(path.Join(bucket, objectPath))
	if err != nil {
		return "", fmt.Errorf("failed to build cloudinary url: %w", err)
	}
	return img.String()
}
