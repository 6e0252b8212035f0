package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/share-recovery-backend/interfaces"
)

func newTestIPFSBackend(t *testing.T, indexPath string) *IPFSBackend {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend, err := NewIPFSBackend("127.0.0.1", "1", false, time.Second, indexPath, logger)
	require.NoError(t, err)
	return backend
}

func TestLoadCIDIndex(t *testing.T) {
	t.Run("empty path yields empty index", func(t *testing.T) {
		index, err := loadCIDIndex("")
		require.NoError(t, err)
		assert.Empty(t, index)
	})

	t.Run("missing file yields empty index", func(t *testing.T) {
		index, err := loadCIDIndex(filepath.Join(t.TempDir(), "missing.json"))
		require.NoError(t, err)
		assert.Empty(t, index)
	})

	t.Run("existing file is loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"shareset/abcd":"QmTest"}`), 0644))

		index, err := loadCIDIndex(path)
		require.NoError(t, err)
		assert.Equal(t, "QmTest", index["shareset/abcd"])
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

		_, err := loadCIDIndex(path)
		assert.Error(t, err)
	})
}

func TestIPFSBackend_FetchUnknownContent(t *testing.T) {
	backend := newTestIPFSBackend(t, "")

	// Index miss is decided locally, no node round-trip involved
	_, err := backend.Fetch(context.Background(), interfaces.ComputeID([]byte("unknown")), interfaces.ShareSetType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestIPFSBackend_IndexPersistence(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "index.json")
	backend := newTestIPFSBackend(t, indexPath)

	id := interfaces.ComputeID([]byte("document"))
	key := backend.indexKey(id, interfaces.ShareSetType)
	require.NoError(t, backend.recordCID(key, "QmExample"))

	// A fresh backend over the same index file sees the mapping
	reloaded := newTestIPFSBackend(t, indexPath)
	reloaded.mu.RLock()
	cid, ok := reloaded.index[key]
	reloaded.mu.RUnlock()
	require.True(t, ok)
	assert.Equal(t, "QmExample", cid)
}

func TestIPFSBackend_NameAndLocation(t *testing.T) {
	backend := newTestIPFSBackend(t, "")

	assert.Equal(t, "ipfs-127.0.0.1-1", backend.Name())
	assert.Contains(t, backend.LocationURI(), "ipfs://127.0.0.1:1/")
}
