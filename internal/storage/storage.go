// Package storage issues presigned object-storage URLs for response media.
// Paths are deterministic per (session, type, step, phase) so repeated
// uploads for the same slot are idempotent overwrites.
package storage

import (
	"context"
	"fmt"
	"time"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"vantage-go/internal/models"
)

// Signer hands out presigned upload and download URLs.
type Signer interface {
	SignUpload(ctx context.Context, key, contentType string) (string, error)
	SignDownload(ctx context.Context, key string) (string, error)
}

// ResponseKey builds the canonical object path for a response's media:
// {sessionId}/{vignetteType}_{step}_phase{n}.{ext}
func ResponseKey(sessionID string, vt models.VignetteType, step, phase int, ext string) string {
	return fmt.Sprintf("%s/%s_%d_phase%d.%s", sessionID, vt, step, phase, ext)
}

type bucketSigner struct {
	client *gcs.Client
	bucket string
	expiry time.Duration
	log    *zap.Logger
}

// NewBucketSigner opens a GCS client for the configured media bucket.
func NewBucketSigner(ctx context.Context, bucket string, expiry time.Duration, log *zap.Logger) (Signer, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket name not configured")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &bucketSigner{
		client: client,
		bucket: bucket,
		expiry: expiry,
		log:    log.With(zap.String("bucket", bucket)),
	}, nil
}

func (s *bucketSigner) SignUpload(ctx context.Context, key, contentType string) (string, error) {
	url, err := s.client.Bucket(s.bucket).SignedURL(key, &gcs.SignedURLOptions{
		Scheme:      gcs.SigningSchemeV4,
		Method:      "PUT",
		Expires:     time.Now().Add(s.expiry),
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign upload url for %s: %w", key, err)
	}
	return url, nil
}

func (s *bucketSigner) SignDownload(ctx context.Context, key string) (string, error) {
	url, err := s.client.Bucket(s.bucket).SignedURL(key, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(s.expiry),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign download url for %s: %w", key, err)
	}
	return url, nil
}
