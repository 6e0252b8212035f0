package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ruteri/share-recovery-backend/interfaces"
)

// FileBackend implements a storage backend using the local file system.
// Share-set documents and recovery reports are stored in separate
// subdirectories, each file named by the hex content ID. Writes go through
// a temp file and fsync so a crash never leaves a half-written document in
// place, and every fetch re-hashes the bytes read so on-disk corruption
// surfaces as an error instead of a silently wrong recovery input.
type FileBackend struct {
	baseDir     string
	prefixes    map[interfaces.ContentType]string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a new file storage backend using the specified base directory.
// It creates subdirectories for different content types if they don't exist.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	prefixes := map[interfaces.ContentType]string{
		interfaces.ShareSetType: "sharesets",
		interfaces.ReportType:   "reports",
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	for _, prefix := range prefixes {
		if err := os.MkdirAll(filepath.Join(baseDir, prefix), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", prefix, err)
		}
	}

	// Format the URI for tracking
	uri := fmt.Sprintf("file://%s", baseDir)

	return &FileBackend{
		baseDir:     baseDir,
		prefixes:    prefixes,
		log:         log,
		locationURI: uri,
	}, nil
}

// Fetch retrieves data from the file system by its content identifier and type.
// Returns ErrContentNotFound if the file doesn't exist, or an error if the
// stored bytes no longer hash to the requested identifier.
func (b *FileBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	start := time.Now()

	filePath, err := b.getFilePath(id, contentType)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			b.log.Debug("Content not found in file storage",
				slog.String("content_id", id.String()),
				slog.String("path", filePath))
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if got := interfaces.ComputeID(data); !got.Equal(id) {
		b.log.Error("Content failed hash verification",
			slog.String("content_id", id.String()),
			slog.String("actual_id", got.String()),
			slog.String("path", filePath))
		return nil, fmt.Errorf("content %s failed verification: stored bytes hash to %s", id, got)
	}

	b.log.Debug("Fetched content from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store saves data to the file system and returns its content identifier.
// The identifier is the SHA-256 hash of the data. The write is atomic:
// data goes to a temp file in the target directory, is fsynced, then
// renamed into place.
func (b *FileBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)

	filePath, err := b.getFilePath(id, contentType)
	if err != nil {
		return id, err
	}

	// Identical content hashes to the same path, so an existing file is already correct.
	if _, err := os.Stat(filePath); err == nil {
		return id, nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return id, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := writeFileAtomic(filePath, data); err != nil {
		return id, err
	}

	b.log.Debug("Stored content in file",
		slog.String("path", filePath),
		slog.String("contentID", id.String()),
		slog.Int("size", len(data)))

	return id, nil
}

// writeFileAtomic writes data to path via a same-directory temp file,
// syncing before the rename.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("failed to write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("failed to sync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}

	return nil
}

// Available checks if the file backend is accessible by verifying the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

// getFilePath generates a file path for a content ID and type.
func (b *FileBackend) getFilePath(id interfaces.ContentID, contentType interfaces.ContentType) (string, error) {
	subdir, ok := b.prefixes[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported content type: %v", contentType)
	}
	return filepath.Join(b.baseDir, subdir, id.String()), nil
}
