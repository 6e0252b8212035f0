package storage

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/share-recovery-backend/interfaces"
)

func testLocation(t *testing.T, uri string) interfaces.StorageBackendLocation {
	t.Helper()

	location, err := interfaces.NewStorageBackendLocation(uri)
	require.NoError(t, err)
	return location
}

func newTestFactory() *StorageBackendFactory {
	return NewStorageBackendFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStorageBackendFor_File(t *testing.T) {
	factory := newTestFactory()
	dir := t.TempDir()

	backend, err := factory.StorageBackendFor(testLocation(t, "file://"+dir))
	require.NoError(t, err)

	require.IsType(t, &FileBackend{}, backend)
	assert.Equal(t, "file://"+dir, backend.LocationURI())
}

func TestStorageBackendFor_S3(t *testing.T) {
	factory := newTestFactory()

	tests := []struct {
		name         string
		uri          string
		expectedName string
	}{
		{
			name:         "public bucket",
			uri:          "s3://recovery-bucket/prod/?region=us-west-2",
			expectedName: "s3-recovery-bucket",
		},
		{
			name:         "with credentials and endpoint",
			uri:          "s3://AKIA123:secret@recovery-bucket/prod/?region=eu-central-1&endpoint=minio.internal:9000",
			expectedName: "s3-recovery-bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := factory.StorageBackendFor(testLocation(t, tt.uri))
			require.NoError(t, err)

			require.IsType(t, &S3Backend{}, backend)
			assert.Equal(t, tt.expectedName, backend.Name())
		})
	}
}

func TestStorageBackendFor_S3MissingBucket(t *testing.T) {
	factory := newTestFactory()

	_, err := factory.StorageBackendFor(testLocation(t, "s3:///prefix/?region=us-east-1"))
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestStorageBackendFor_IPFS(t *testing.T) {
	factory := newTestFactory()

	backend, err := factory.StorageBackendFor(testLocation(t, "ipfs://ipfs.example.com:5001/?timeout=10s"))
	require.NoError(t, err)

	require.IsType(t, &IPFSBackend{}, backend)
	assert.Equal(t, "ipfs-ipfs.example.com-5001", backend.Name())
	assert.Contains(t, backend.LocationURI(), "timeout=10s")
}

func TestStorageBackendFor_IPFSDefaultPort(t *testing.T) {
	factory := newTestFactory()

	backend, err := factory.StorageBackendFor(testLocation(t, "ipfs://ipfs.example.com"))
	require.NoError(t, err)
	assert.Equal(t, "ipfs-ipfs.example.com-5001", backend.Name())
}

func TestStorageBackendFor_IPFSInvalidTimeout(t *testing.T) {
	factory := newTestFactory()

	_, err := factory.StorageBackendFor(testLocation(t, "ipfs://ipfs.example.com:5001/?timeout=bogus"))
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestStorageBackendFor_Vault(t *testing.T) {
	factory := newTestFactory()

	tests := []struct {
		name          string
		uri           string
		expectedName  string
		expectedToken string
	}{
		{
			name:          "token via query parameter",
			uri:           "vault://vault.example.com:8200/secret/recovery?token=s.abc123",
			expectedName:  "vault-secret-recovery",
			expectedToken: "s.abc123",
		},
		{
			name:          "token via userinfo",
			uri:           "vault://s.def456@vault.example.com:8200/kv/prod",
			expectedName:  "vault-kv-prod",
			expectedToken: "s.def456",
		},
		{
			name:          "default mount and path",
			uri:           "vault://vault.example.com:8200?token=s.ghi789",
			expectedName:  "vault-secret-recovery",
			expectedToken: "s.ghi789",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := factory.StorageBackendFor(testLocation(t, tt.uri))
			require.NoError(t, err)

			vaultBackend, ok := backend.(*VaultBackend)
			require.True(t, ok)
			assert.Equal(t, tt.expectedName, vaultBackend.Name())
			assert.Equal(t, tt.expectedToken, vaultBackend.client.Token())
		})
	}
}

func TestStorageBackendFor_UnsupportedScheme(t *testing.T) {
	factory := newTestFactory()

	// NewStorageBackendLocation rejects unknown schemes, so build one by hand
	location := interfaces.StorageBackendLocation{Raw: "http://example.com", Scheme: "http", Host: "example.com"}

	_, err := factory.StorageBackendFor(location)
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestCreateMultiBackend(t *testing.T) {
	factory := newTestFactory()

	locations := []interfaces.StorageBackendLocation{
		testLocation(t, "file://"+t.TempDir()),
		testLocation(t, "s3://recovery-bucket/prod/?region=us-east-1"),
	}

	backend, err := factory.CreateMultiBackend(locations)
	require.NoError(t, err)
	assert.Equal(t, "multi-storage", backend.Name())
}

func TestCreateMultiBackend_SkipsInvalidLocations(t *testing.T) {
	factory := newTestFactory()

	locations := []interfaces.StorageBackendLocation{
		{Raw: "http://bad", Scheme: "http"},
		testLocation(t, "file://" + t.TempDir()),
	}

	backend, err := factory.CreateMultiBackend(locations)
	require.NoError(t, err)
	assert.Equal(t, "multi-storage", backend.Name())
}

func TestCreateMultiBackend_AllInvalid(t *testing.T) {
	factory := newTestFactory()

	_, err := factory.CreateMultiBackend([]interfaces.StorageBackendLocation{
		{Raw: "http://bad", Scheme: "http"},
	})
	assert.Error(t, err)
}
