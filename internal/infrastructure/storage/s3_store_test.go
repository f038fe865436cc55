package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-studio-api/internal/config"
)

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "covers/run-1.png", CoverKey("run-1", "png"))
	assert.Equal(t, "covers/run-1.jpg", CoverKey("run-1", ".jpg"))
	assert.Equal(t, "exports/b-1.epub", ExportKey("b-1", "epub"))
}

func TestNewS3StoreDisabled(t *testing.T) {
	store, err := NewS3Store(&config.S3Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestNewS3StoreValidation(t *testing.T) {
	_, err := NewS3Store(&config.S3Config{Enabled: true})
	assert.Error(t, err)

	_, err = NewS3Store(&config.S3Config{Enabled: true, Endpoint: "localhost:9000", AccessKeyID: "a", SecretAccessKey: "b"})
	assert.Error(t, err)

	store, err := NewS3Store(&config.S3Config{
		Enabled: true, Endpoint: "localhost:9000", AccessKeyID: "a", SecretAccessKey: "b", Bucket: "ebooks",
	})
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, defaultPresignExpiry, store.presignExpiry)
}
