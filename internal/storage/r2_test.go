package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plate-registry/internal/config"
)

func TestNewR2Client_NotConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.R2Config
	}{
		{name: "empty", cfg: config.R2Config{}},
		{name: "missing bucket", cfg: config.R2Config{Endpoint: "https://r2.example.com", AccessKeyID: "a", SecretKey: "s"}},
		{name: "missing secret", cfg: config.R2Config{Endpoint: "https://r2.example.com", AccessKeyID: "a", Bucket: "b"}},
		{name: "blank endpoint", cfg: config.R2Config{Endpoint: "  ", AccessKeyID: "a", SecretKey: "s", Bucket: "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewR2Client(tt.cfg)
			assert.ErrorIs(t, err, ErrNotConfigured)
			assert.Nil(t, client)
		})
	}
}

func TestObjectURL(t *testing.T) {
	base := config.R2Config{
		Endpoint:    "https://acct.r2.cloudflarestorage.com/",
		AccessKeyID: "key",
		SecretKey:   "secret",
		Bucket:      "snapshots",
	}

	client, err := NewR2Client(base)
	require.NoError(t, err)
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com/snapshots/detections/a.png", client.objectURL("/detections/a.png"))

	base.PublicBaseURL = "https://cdn.example.com/"
	client, err = NewR2Client(base)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/snapshots/detections/a.png", client.objectURL("detections/a.png"))
}

func TestUpload_RejectsBeforeNetwork(t *testing.T) {
	client, err := NewR2Client(config.R2Config{
		Endpoint:    "https://acct.r2.cloudflarestorage.com",
		AccessKeyID: "key",
		SecretKey:   "secret",
		Bucket:      "snapshots",
	})
	require.NoError(t, err)

	_, err = client.Upload(context.Background(), "a.png", bytes.NewReader(nil), 0, "image/png")
	assert.ErrorIs(t, err, ErrEmptyObject)

	_, err = client.Upload(context.Background(), "a.txt", bytes.NewReader([]byte("x")), 1, "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedContent)

	var nilClient *R2Client
	_, err = nilClient.Upload(context.Background(), "a.png", bytes.NewReader([]byte("x")), 1, "image/png")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
