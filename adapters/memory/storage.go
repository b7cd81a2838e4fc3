package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
)

type object struct {
	data        []byte
	contentType string
}

// AssetStorage keeps uploaded blobs in memory and serves them over HTTP at
// <baseURL>/<bucket>/<key>.
type AssetStorage struct {
	mu        sync.RWMutex
	baseURL   string
	objects   map[string]object
	uploadErr error
}

var _ service.AssetStorage = (*AssetStorage)(nil)

func NewAssetStorage(baseURL string) *AssetStorage {
	return &AssetStorage{baseURL: strings.TrimSuffix(baseURL, "/"), objects: make(map[string]object)}
}

func (s *AssetStorage) SetBaseURL(baseURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = strings.TrimSuffix(baseURL, "/")
}

// FailUploads makes every following Upload return err; nil restores uploads.
func (s *AssetStorage) FailUploads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadErr = err
}

func (s *AssetStorage) Upload(ctx context.Context, bucket, key string, file io.Reader, _ int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("read upload body: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	name := bucket + "/" + key
	if _, exists := s.objects[name]; exists {
		return "", apperror.NewConflict("object", "key", key)
	}
	s.objects[name] = object{data: data, contentType: contentType}
	return key, nil
}

func (s *AssetStorage) PublicURL(bucket, path string) (string, error) {
	s.mu.RLock()
	base := s.baseURL
	s.mu.RUnlock()
	return url.JoinPath(base, bucket, path)
}

// Object returns a stored blob.
func (s *AssetStorage) Object(bucket, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[bucket+"/"+key]
	return obj.data, ok
}

func (s *AssetStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *AssetStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	obj, ok := s.objects[strings.TrimPrefix(r.URL.Path, "/")]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	h := w.Header()
	if obj.contentType != "" {
		h.Set("Content-Type", obj.contentType)
	}
	// Uploads are untrusted; an SVG opened directly must not run script on
	// the API origin.
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	if strings.HasPrefix(obj.contentType, "image/svg+xml") {
		h.Set("Content-Disposition", "attachment")
	}
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(obj.data))
}
