// Package archive persists raw inbound webhook payloads to object storage so
// deliveries can be audited and replayed. Archiving is best effort and sits
// outside the ingestion path.
package archive

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// GCS writes payloads into a bucket under webhook/YYYY/MM/DD/<uuid>.json.
// It assumes Application Default Credentials are configured.
type GCS struct {
	bucket string
	client *storage.Client
}

// NewGCS creates an archiver for the bucket.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket is not set")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{bucket: bucket, client: client}, nil
}

// ArchivePayload stores one payload and returns its object name.
func (g *GCS) ArchivePayload(ctx context.Context, payload []byte) (string, error) {
	objectName := fmt.Sprintf("webhook/%s/%s.json", time.Now().UTC().Format("2006/01/02"), uuid.New().String())

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write payload to %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize payload %s: %w", objectName, err)
	}

	return objectName, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}
