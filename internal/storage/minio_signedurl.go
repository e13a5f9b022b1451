package storage

import (
	"context"
	"net/url"
	"time"

	"shop_back_end/internal/apperr"
)

// PresignedURL génère une URL de lecture temporaire pour une image
func (s *ImageStore) PresignedURL(ctx context.Context, publicID string, ttl time.Duration) (string, error) {
	if !ValidPublicID(publicID) {
		return "", apperr.Validation("Invalid public_id")
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, publicID, ttl, make(url.Values))
	if err != nil {
		return "", apperr.Internal(err, "presign image")
	}
	return u.String(), nil
}
