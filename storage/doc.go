// Package storage provides content-addressed storage for share-set documents
// and recovery reports with pluggable backends.
//
// The storage package offers a unified interface for storing and retrieving
// content identified by SHA-256 hash across multiple storage backends:
//
//   - File system storage for local development and single-node deployments
//   - S3-compatible storage for cloud deployments
//   - IPFS storage for decentralized content
//   - Vault storage for deployments that keep share material in a secret engine
//
// # Storage URI Format
//
// Storage backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/recovery/
//   - s3://bucket-name/prefix/?region=us-west-2
//   - ipfs://ipfs.example.com:5001/?index=/var/lib/recovery/ipfs-index.json
//   - vault://vault.example.com:8200/secret/recovery?token=...
//
// # Content Addressing
//
// Content is stored and retrieved using content addressing, where the content
// identifier is the SHA-256 hash of the data. Share-set documents and recovery
// reports are stored in separate namespaces, so access policies and retention
// can treat raw share material differently from derived reports. Uploading the
// same document twice yields the same identifier, which makes stores idempotent
// and lets a report reference the exact document it was computed from.
//
// The file backend additionally verifies content on every fetch by re-hashing
// the bytes read from disk, and the IPFS backend verifies bytes against its
// local content ID index; corruption is reported as an error rather than fed
// into recovery.
//
// # Multi-Backend Storage
//
// The MultiStorageBackend aggregates multiple backends for redundancy:
//
//   - Store: Attempts to store in all available backends
//   - Fetch: Tries each backend until content is found
//   - Available: Returns true if any backend is available
//
// # Vault Storage
//
// The VaultBackend stores content in HashiCorp Vault's KV v2 secret engine
// using token authentication. Paths follow the format
// {mount}/data/{path}/{type}/{content_id}, so Vault policies can grant a
// custodian-facing service read access to reports without exposing uploaded
// share sets.
//
// # Usage Example
//
//	// Create a storage factory
//	factory := storage.NewStorageBackendFactory(logger)
//
//	// Create a file backend
//	location, err := interfaces.NewStorageBackendLocation("file:///var/lib/recovery/")
//	if err != nil {
//	    log.Fatalf("Invalid storage location: %v", err)
//	}
//	fileBackend, err := factory.StorageBackendFor(location)
//	if err != nil {
//	    log.Fatalf("Failed to create file backend: %v", err)
//	}
//
//	// Store a share-set document
//	id, err := fileBackend.Store(context.Background(), document, interfaces.ShareSetType)
//	if err != nil {
//	    log.Fatalf("Failed to store document: %v", err)
//	}
//
//	// Retrieve it by content ID
//	retrieved, err := fileBackend.Fetch(context.Background(), id, interfaces.ShareSetType)
//	if err != nil {
//	    log.Fatalf("Failed to fetch document: %v", err)
//	}
//
// # Multi-Backend Example
//
//	// Create a multi-backend from multiple locations
//	uris := []string{
//	    "file:///var/lib/recovery/",
//	    "s3://recovery-bucket/prod/?region=us-west-2",
//	    "vault://vault.example.com:8200/secret/recovery",
//	}
//	locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
//	for _, uri := range uris {
//	    location, err := interfaces.NewStorageBackendLocation(uri)
//	    if err != nil {
//	        log.Fatalf("Invalid storage location %s: %v", uri, err)
//	    }
//	    locations = append(locations, location)
//	}
//	multiBackend, err := factory.CreateMultiBackend(locations)
package storage
