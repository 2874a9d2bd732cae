package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jorellortega/covionpartners-sub001/config"
)

// GCSBlobStore stores contract files in a Google Cloud Storage bucket.
type GCSBlobStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

func NewGCSBlobStore(ctx context.Context, cfg config.GCSConfig) (*GCSBlobStore, error) {
	var opts []option.ClientOption
	publicBase := "https://storage.googleapis.com"
	if endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"); endpoint != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		opts = append(opts, option.WithoutAuthentication())
		publicBase = endpoint
	} else {
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSBlobStore{client: client, bucket: cfg.Bucket, publicBaseURL: publicBase}, nil
}

// Upload writes with a DoesNotExist precondition so a key is never overwritten.
func (s *GCSBlobStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	obj := s.client.Bucket(s.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return "", fmt.Errorf("%w: %s", ErrBlobExists, key)
		}
		return "", fmt.Errorf("finalize upload %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

func (s *GCSBlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *GCSBlobStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key)
}

func (s *GCSBlobStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *GCSBlobStore) Close() error {
	return s.client.Close()
}

// NewBlobStore builds the store selected by cfg.Storage.Provider.
func NewBlobStore(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	switch cfg.Storage.Provider {
	case config.StorageGCS:
		return NewGCSBlobStore(ctx, cfg.Storage.GCS)
	case config.StorageMemory:
		return NewMemoryBlobStore(""), nil
	default:
		store, err := NewMinioBlobStore(&cfg.Minio)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
}
