package storage

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/ruteri/share-recovery-backend/interfaces"
)

// StorageBackendFactory creates storage backends from parsed location URIs and
// manages multi-backend configurations for redundant storage.
type StorageBackendFactory struct {
	log *slog.Logger
}

// NewStorageBackendFactory creates a new factory instance that can create storage backends.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{
		log: logger,
	}
}

// StorageBackendFor creates a storage backend from a location.
// The URI format is [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS node with a local content ID index
//   - vault:// - HashiCorp Vault KV v2 secret engine
//
// Returns an error wrapping ErrInvalidLocationURI if the scheme is unsupported
// or required parameters are missing.
func (sf *StorageBackendFactory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	switch {
	case location.IsFile():
		return sf.createFileBackend(location)
	case location.IsS3():
		return sf.createS3Backend(location)
	case location.IsIPFS():
		return sf.createIPFSBackend(location)
	case location.IsVault():
		return sf.createVaultBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiBackend creates a multi-storage backend from a list of locations.
// The multi-backend aggregates all valid backends, providing redundancy for storage
// operations. It will store content to all available backends and fetch from the
// first one that has the content. Returns an error if no valid backends could be
// created from the provided locations.
func (sf *StorageBackendFactory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	backends := make([]interfaces.StorageBackend, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.StorageBackendFor(location)
		if err != nil {
			sf.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("locationURI", location.String()))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}

	return NewMultiStorageBackend(backends, sf.log), nil
}

// createFileBackend creates a file system storage backend.
// URI format: file:///absolute/path/ or file://./relative/path/
// The backend stores content in a directory structure organized by content type.
func (sf *StorageBackendFactory) createFileBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", location.String()))

	// Join host and path so relative URIs like file://./data resolve naturally
	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, location.String())
	}

	return NewFileBackend(path, sf.log)
}

// createS3Backend creates an S3 or S3-compatible storage backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=custom.s3.com
// The backend supports both public buckets (read-only) and authenticated access.
func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating S3 backend", slog.String("uri", location.String()))

	bucketName := location.Host
	if bucketName == "" {
		return nil, fmt.Errorf("%w: missing bucket name in S3 URI", interfaces.ErrInvalidLocationURI)
	}

	prefix := strings.TrimPrefix(location.Path, "/")

	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	endpoint := location.GetParam("endpoint")

	var accessKey, secretKey string
	if location.Auth != "" {
		accessKey, secretKey, _ = strings.Cut(location.Auth, ":")
		sf.log.Debug("Using embedded credentials for write access")
	} else {
		sf.log.Debug("No credentials provided, S3 bucket assumed to be public, write operations may fail")
	}

	return NewS3Backend(bucketName, prefix, region, endpoint, accessKey, secretKey, sf.log)
}

// createIPFSBackend creates an IPFS storage backend.
// URI format: ipfs://host:port/?gateway=true&timeout=30s&index=/var/lib/recovery/ipfs-index.json
// The backend can connect to either an IPFS node or a gateway.
func (sf *StorageBackendFactory) createIPFSBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating IPFS backend", slog.String("uri", location.String()))

	host, port, err := net.SplitHostPort(location.Host)
	if err != nil {
		host = location.Host
		port = "5001" // Default IPFS API port
	}
	if host == "" {
		return nil, fmt.Errorf("%w: missing host in IPFS URI", interfaces.ErrInvalidLocationURI)
	}

	useGateway := location.GetParamBool("gateway")

	timeout := 30 * time.Second
	if raw := location.GetParam("timeout"); raw != "" {
		timeout, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout %q: %v", interfaces.ErrInvalidLocationURI, raw, err)
		}
	}

	indexPath := location.GetParam("index")

	return NewIPFSBackend(host, port, useGateway, timeout, indexPath, sf.log)
}

// createVaultBackend creates a HashiCorp Vault storage backend.
// URI format: vault://vault.example.com:8200/mount/path?token=...
// The token may also be supplied as URI userinfo or via VAULT_TOKEN.
// Vault is reached over HTTPS unless insecure=true is set.
func (sf *StorageBackendFactory) createVaultBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating Vault backend", slog.String("uri", location.String()))

	if location.Host == "" {
		return nil, fmt.Errorf("%w: missing host in Vault URI", interfaces.ErrInvalidLocationURI)
	}

	scheme := "https"
	if location.GetParamBool("insecure") {
		scheme = "http"
	}
	address := fmt.Sprintf("%s://%s", scheme, location.Host)

	mountPath := "secret"
	dataPath := "recovery"
	if trimmed := strings.Trim(location.Path, "/"); trimmed != "" {
		mountPath, dataPath, _ = strings.Cut(trimmed, "/")
		if dataPath == "" {
			dataPath = "recovery"
		}
	}

	token := location.GetParam("token")
	if token == "" {
		token = location.Auth
	}

	return NewVaultBackend(address, mountPath, dataPath, token, sf.log)
}
