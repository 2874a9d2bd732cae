package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorellortega/covionpartners-sub001/config"
	"github.com/jorellortega/covionpartners-sub001/pdfform"
)

func TestBlobKey(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a := BlobKey("c-1", "My Contract.pdf", now)
	b := BlobKey("c-1", "My Contract.pdf", now)

	assert.NotEqual(t, a, b, "same name and millisecond must still differ")
	assert.True(t, strings.HasPrefix(a, "contracts/c-1/1700000000000-"))
	assert.True(t, strings.HasSuffix(a, "-My_Contract.pdf"))

	assert.True(t, strings.HasSuffix(BlobKey("c-1", "../../etc/passwd", now), "-passwd"))
	assert.True(t, strings.HasSuffix(BlobKey("c-1", `C:\docs\a.pdf`, now), "-a.pdf"))
	assert.True(t, strings.HasSuffix(BlobKey("c-1", "", now), "-file"))
}

func TestMemoryBlobStoreNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBlobStore("http://files.local/")

	url, err := s.Upload(ctx, "k", []byte("one"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "http://files.local/k", url)

	_, err = s.Upload(ctx, "k", []byte("two"), "text/plain")
	assert.ErrorIs(t, err, ErrBlobExists)

	data, err := s.Download(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Download(ctx, "k")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestMinioPublicURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.MinioConfig
		key      string
		expected string
	}{
		{
			name:     "http url",
			cfg:      config.MinioConfig{Endpoint: "localhost:9000", Bucket: "test-bucket"},
			key:      "contracts/c-1/doc.pdf",
			expected: "http://localhost:9000/test-bucket/contracts/c-1/doc.pdf",
		},
		{
			name:     "https url",
			cfg:      config.MinioConfig{Endpoint: "minio.example.com", Bucket: "contracts", UseSSL: true},
			key:      "a.pdf",
			expected: "https://minio.example.com/contracts/a.pdf",
		},
		{
			name:     "public url override",
			cfg:      config.MinioConfig{Endpoint: "minio:9000", Bucket: "contracts", PublicURL: "https://cdn.example.com/"},
			key:      "a.pdf",
			expected: "https://cdn.example.com/contracts/a.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			s := &MinioBlobStore{bucket: cfg.Bucket, config: &cfg}
			assert.Equal(t, tt.expected, s.PublicURL(tt.key))
		})
	}
}

func TestNewMinioBlobStore(t *testing.T) {
	s, err := NewMinioBlobStore(&config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Bucket: "b"})
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestNewBlobStoreMemory(t *testing.T) {
	s, err := NewBlobStore(context.Background(), &config.Config{Storage: config.StorageConfig{Provider: config.StorageMemory}})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBlobStore{}, s)
}

func TestGCSPublicURL(t *testing.T) {
	s := &GCSBlobStore{bucket: "contracts", publicBaseURL: "https://storage.googleapis.com"}
	assert.Equal(t, "https://storage.googleapis.com/contracts/a/b.pdf", s.PublicURL("a/b.pdf"))
}

func TestMemoryFieldCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryFieldCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	fields := []pdfform.Descriptor{{Name: "signer_name", Kind: pdfform.KindText}}
	require.NoError(t, c.Set(ctx, "k", fields))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, fields, got)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNewFieldCacheWithoutRedis(t *testing.T) {
	cache, closeFn, err := NewFieldCache(context.Background(), config.RedisConfig{FieldCacheTTLMinutes: 5})
	require.NoError(t, err)
	assert.IsType(t, &MemoryFieldCache{}, cache)
	assert.NoError(t, closeFn())
}
