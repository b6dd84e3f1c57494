package certificate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Publisher makes a rendered certificate shareable
type Publisher interface {
	Publish(ctx context.Context, key string, png []byte) (string, error)
}

// BucketPublisher uploads certificates to a Cloud Storage bucket
type BucketPublisher struct {
	client    *storage.Client
	bucket    string
	publicURL string
}

// NewBucketPublisher creates a publisher for bucket. publicURL overrides the
// storage.googleapis.com base, e.g. a CDN domain.
func NewBucketPublisher(ctx context.Context, bucket, publicURL string, opts ...option.ClientOption) (*BucketPublisher, error) {
	if bucket == "" {
		return nil, fmt.Errorf("missing certificate bucket name")
	}
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &BucketPublisher{client: client, bucket: bucket, publicURL: publicURL}, nil
}

// Publish uploads png under key and returns its public URL
func (p *BucketPublisher) Publish(ctx context.Context, key string, png []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := p.client.Bucket(p.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "image/png"
	if _, err := io.Copy(w, bytes.NewReader(png)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return p.PublicURL(key), nil
}

// PublicURL returns the address an uploaded key is served from
func (p *BucketPublisher) PublicURL(key string) string {
	if p.publicURL != "" {
		return strings.TrimRight(p.publicURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", p.bucket, key)
}

func (p *BucketPublisher) Close() error {
	return p.client.Close()
}
