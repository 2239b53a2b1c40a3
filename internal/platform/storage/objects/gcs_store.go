//go:build gcp

package objects

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCSStore grava os áudios no Google Cloud Storage (credenciais via ADC).
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
	base   string
}

type GCSStoreConfig struct {
	Bucket        string
	Prefix        string
	PublicBaseURL string
}

func NewGCSStore(ctx context.Context, cfg GCSStoreConfig) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("objects: criar cliente gcs: %w", err)
	}

	return &GCSStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		base:   cfg.PublicBaseURL,
	}, nil
}

func (s *GCSStore) Upload(ctx context.Context, name string, data []byte, contentType string) error {
	obj := s.client.Bucket(s.bucket).Object(s.prefix + name)

	// A condição DoesNotExist impede sobrescrever um objeto existente.
	_, err := obj.Attrs(ctx)
	if err == nil {
		return ErrObjectExists
	}

	w := obj.If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("objects: gcs write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("objects: gcs close %s: %w", name, err)
	}
	return nil
}

func (s *GCSStore) PublicURL(name string) string {
	key := escapeKey(s.prefix + name)
	if s.base != "" {
		return joinURL(s.base, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}

func (s *GCSStore) Ping(ctx context.Context) error {
	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("objects: gcs bucket attrs: %w", err)
	}
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
