package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSStore keeps images in a Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore uses credentialsFile when set, application default credentials otherwise.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("STORAGE_BUCKET is required for the gcs backend")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	name := objectName(contentType)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=86400"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return s.publicURL(name), nil
}

func (s *GCSStore) Delete(ctx context.Context, rawURL string) error {
	name, ok := s.objectFromURL(rawURL)
	if !ok {
		return nil
	}
	err := s.client.Bucket(s.bucket).Object(name).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) publicURL(name string) string {
	return fmt.Sprintf("%s/%s/%s", gcsPublicHost, s.bucket, (&url.URL{Path: name}).EscapedPath())
}

func (s *GCSStore) objectFromURL(rawURL string) (string, bool) {
	escaped, ok := strings.CutPrefix(rawURL, fmt.Sprintf("%s/%s/", gcsPublicHost, s.bucket))
	if !ok {
		return "", false
	}
	name, err := url.PathUnescape(escaped)
	if err != nil || !strings.HasPrefix(name, objectPrefix) {
		return "", false
	}
	return name, true
}
