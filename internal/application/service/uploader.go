package service

import (
	"context"
	"io"
)

// AssetStorage is the blob bucket behind uploaded icons.
type AssetStorage interface {
	// Upload stores the blob under key and returns the stored path.
	Upload(ctx context.Context, bucket, key string, file io.Reader, size int64, contentType string) (string, error)
	PublicURL(bucket, path string) (string, error)
}
