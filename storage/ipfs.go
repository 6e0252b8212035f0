package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sync"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/ruteri/share-recovery-backend/interfaces"
)

// IPFSBackend implements a storage backend using the InterPlanetary File System (IPFS).
// IPFS addresses content by its own CID rather than the SHA-256 content ID the
// rest of the system uses, so the backend keeps a local index mapping content
// IDs to CIDs. The index can be persisted to a JSON file so content stored by
// a previous process remains fetchable.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	useGateway  bool
	indexPath   string
	log         *slog.Logger
	locationURI string

	mu    sync.RWMutex
	index map[string]string // "<type>/<hex content id>" -> IPFS CID
}

// NewIPFSBackend creates a new IPFS storage backend connected to the specified host and port.
// When useGateway is true, it uses the IPFS HTTP gateway instead of the IPFS API.
// A non-empty indexPath names a JSON file used to persist the content ID to CID index.
func NewIPFSBackend(host, port string, useGateway bool, timeout time.Duration, indexPath string, log *slog.Logger) (*IPFSBackend, error) {
	// Construct API URL
	apiURL := fmt.Sprintf("%s:%s", host, port)

	sh := shell.NewShell(apiURL)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	// Format the URI for tracking
	uri := fmt.Sprintf("ipfs://%s/?timeout=%s", apiURL, timeout)
	if useGateway {
		uri = fmt.Sprintf("ipfs://%s/?gateway=true&timeout=%s", apiURL, timeout)
	}
	if indexPath != "" {
		uri += fmt.Sprintf("&index=%s", indexPath)
	}

	index, err := loadCIDIndex(indexPath)
	if err != nil {
		return nil, err
	}

	return &IPFSBackend{
		shell:       sh,
		host:        host,
		port:        port,
		useGateway:  useGateway,
		indexPath:   indexPath,
		index:       index,
		log:         log,
		locationURI: uri,
	}, nil
}

// loadCIDIndex reads a persisted content ID to CID index.
// A missing file or empty path yields an empty index.
func loadCIDIndex(indexPath string) (map[string]string, error) {
	index := make(map[string]string)
	if indexPath == "" {
		return index, nil
	}

	data, err := os.ReadFile(indexPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return index, nil
		}
		return nil, fmt.Errorf("failed to read IPFS index file: %w", err)
	}

	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse IPFS index file %s: %w", indexPath, err)
	}

	return index, nil
}

// Fetch retrieves data from IPFS by its content identifier and type.
// Returns ErrContentNotFound if the content was never stored through this
// index, or ErrBackendUnavailable if the IPFS node is not accessible.
func (b *IPFSBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	start := time.Now()
	key := b.indexKey(id, contentType)

	b.mu.RLock()
	cid, ok := b.index[key]
	b.mu.RUnlock()

	if !ok {
		b.log.Debug("Content not found in IPFS index",
			slog.String("content_id", id.String()))
		return nil, interfaces.ErrContentNotFound
	}

	// Check if the IPFS node is available
	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.Cat(path.Join("/ipfs", cid))
	if err != nil {
		b.log.Error("Failed to fetch data from IPFS",
			slog.String("cid", cid),
			slog.String("content_id", id.String()),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to fetch data from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		b.log.Error("Failed to read data from IPFS",
			slog.String("cid", cid),
			slog.String("content_id", id.String()),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}

	// The index is mutable local state, so check that the CID it pointed at
	// still resolves to the bytes the caller asked for.
	if got := interfaces.ComputeID(data); !got.Equal(id) {
		return nil, fmt.Errorf("content %s failed verification: IPFS object %s hashes to %s", id, cid, got)
	}

	b.log.Debug("Fetched content from IPFS",
		slog.String("cid", cid),
		slog.String("content_id", id.String()),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store adds data to IPFS and returns its content identifier.
// The identifier is the SHA-256 hash of the data; the IPFS CID the node
// assigns is recorded in the local index. Returns ErrBackendUnavailable
// if the IPFS node is not accessible.
func (b *IPFSBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)

	// Check if the IPFS node is available
	if !b.shell.IsUp() {
		return id, interfaces.ErrBackendUnavailable
	}

	cid, err := b.shell.Add(bytes.NewReader(data))
	if err != nil {
		return id, fmt.Errorf("failed to add data to IPFS: %w", err)
	}

	if err := b.recordCID(b.indexKey(id, contentType), cid); err != nil {
		return id, err
	}

	b.log.Debug("Stored content in IPFS",
		slog.String("ipfsCID", cid),
		slog.String("contentID", id.String()),
		slog.String("contentType", contentType.String()))

	return id, nil
}

// recordCID updates the index and persists it when an index file is configured.
func (b *IPFSBackend) recordCID(key, cid string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.index[key] = cid

	if b.indexPath == "" {
		return nil
	}

	data, err := json.Marshal(b.index)
	if err != nil {
		return fmt.Errorf("failed to encode IPFS index: %w", err)
	}
	if err := writeFileAtomic(b.indexPath, data); err != nil {
		return fmt.Errorf("failed to persist IPFS index: %w", err)
	}
	return nil
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this storage backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

// indexKey generates an index key based on content ID and type.
func (b *IPFSBackend) indexKey(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return path.Join(contentType.String(), id.String())
}
