package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"strings"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

const (
	MaxImageSize = 5 << 20
	objectPrefix = "products/"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type UploadedImage struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// ImageStore héberge les images produit dans un bucket MinIO
type ImageStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewImageStore(client *minio.Client, cfg config.MinIOConfig) *ImageStore {
	base := cfg.PublicURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return &ImageStore{client: client, bucket: cfg.Bucket, publicURL: strings.TrimRight(base, "/")}
}

// DetectImageType identifie le format réel du fichier d'après son contenu
func DetectImageType(r io.Reader) (contentType, ext string, err error) {
	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return "", "", apperr.Validation("Unable to read file")
	}
	for allowed, extension := range allowedImageTypes {
		if mtype.Is(allowed) {
			return allowed, extension, nil
		}
	}
	return "", "", apperr.Validation("Invalid file type. Only JPEG, PNG and WebP are allowed")
}

func (s *ImageStore) Upload(ctx context.Context, fh *multipart.FileHeader) (*UploadedImage, error) {
	if fh.Size > MaxImageSize {
		return nil, apperr.Validation("File size must be less than 5MB")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.Validation("Unable to read file")
	}
	defer f.Close()

	contentType, ext, err := DetectImageType(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, apperr.Internal(err, "rewind upload")
	}

	objectName := objectPrefix + uuid.NewString() + ext
	if _, err := s.client.PutObject(ctx, s.bucket, objectName, f, fh.Size,
		minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return nil, apperr.Internal(err, "upload image")
	}
	log.Printf("🖼️ Image uploadée: %s", objectName)

	return &UploadedImage{URL: s.URL(objectName), PublicID: objectName}, nil
}

// Delete supprime une image ; seuls les objets du préfixe produits sont acceptés
func (s *ImageStore) Delete(ctx context.Context, publicID string) error {
	if !ValidPublicID(publicID) {
		return apperr.Validation("Invalid public_id")
	}
	if err := s.client.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return apperr.Internal(err, "delete image")
	}
	log.Printf("🗑️ Image supprimée: %s", publicID)
	return nil
}

func ValidPublicID(publicID string) bool {
	return strings.HasPrefix(publicID, objectPrefix) && !strings.Contains(publicID, "..") &&
		len(publicID) > len(objectPrefix)
}

func (s *ImageStore) URL(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, objectName)
}
