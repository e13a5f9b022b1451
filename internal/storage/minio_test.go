package storage

import (
	"bytes"
	"testing"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestDetectImageType(t *testing.T) {
	ct, ext, err := DetectImageType(bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, ".png", ext)

	ct, ext, err = DetectImageType(bytes.NewReader([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F', 0}))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)
	assert.Equal(t, ".jpg", ext)

	webp := append([]byte("RIFF"), 0x24, 0, 0, 0)
	webp = append(webp, []byte("WEBPVP8 ")...)
	ct, _, err = DetectImageType(bytes.NewReader(webp))
	require.NoError(t, err)
	assert.Equal(t, "image/webp", ct)

	_, _, err = DetectImageType(bytes.NewReader([]byte("GIF89a........")))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestValidPublicID(t *testing.T) {
	assert.True(t, ValidPublicID("products/1c1d.png"))
	assert.False(t, ValidPublicID("products/"))
	assert.False(t, ValidPublicID("invoices/secret.pdf"))
	assert.False(t, ValidPublicID("products/../invoices/x.pdf"))
}

func TestPublicURL(t *testing.T) {
	s := NewImageStore(nil, config.MinIOConfig{Endpoint: "minio:9000", Bucket: "images"})
	assert.Equal(t, "http://minio:9000/images/products/a.png", s.URL("products/a.png"))

	s = NewImageStore(nil, config.MinIOConfig{Endpoint: "minio:9000", Bucket: "images", PublicURL: "https://cdn.shop.test/"})
	assert.Equal(t, "https://cdn.shop.test/images/products/a.png", s.URL("products/a.png"))
}
