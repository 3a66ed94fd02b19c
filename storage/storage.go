// Package storage handles persistence of run manifests.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/option"
)

// Sink writes manifests either to the local filesystem or to a Cloud Storage
// bucket. A non-empty bucket takes precedence over local writes.
type Sink struct {
	client *storage.Client
	logger *slog.Logger
	bucket string
}

// NewSink creates a manifest sink. The Cloud Storage client is only dialed
// when a bucket is configured; local-only runs never touch the network.
func NewSink(ctx context.Context, bucket string, credentialsJSON []byte, logger *slog.Logger) (*Sink, error) {
	s := &Sink{bucket: bucket, logger: logger}
	if bucket == "" {
		return s, nil
	}

	var opts []option.ClientOption
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	s.client = client
	return s, nil
}

// Close releases the Cloud Storage client, if any.
func (s *Sink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Write marshals the manifest and writes it to the configured destination.
// The local path's parent directories are created as needed.
func (s *Sink) Write(ctx context.Context, path string, manifest any) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if s.bucket == "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create manifest directory: %w", err)
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
		s.logger.Info("Manifest written", "path", path, "bytes", len(data))
		return nil
	}

	key := filepath.Base(path)

	// Cloud Storage with retry logic for reliability
	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
			w.ContentType = "application/json"
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying manifest upload after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("upload after retries: %w", err)
	}

	s.logger.Info("Manifest uploaded", "bucket", s.bucket, "key", key, "bytes", len(data))
	return nil
}
