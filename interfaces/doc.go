// Package interfaces defines the core types and interfaces shared across the
// share recovery service, separating contracts from implementations.
//
// The package contains:
//
// # Recovery Types
//
//   - Share: one point (x, y) of a split secret with a custodian-facing ID
//   - ShareSet: a group of shares plus the recovery threshold k
//   - Classification: the outcome of wrong-share detection, the recovered
//     secret plus the IDs consistent with it and the IDs that are not
//   - Budget: combination and deadline limits bounding a detection run
//   - CustodianRecord: a registry entry binding a custodian ID to a key
//
// All integer values cross process boundaries as decimal strings, never
// fixed-width numerics, so shares of arbitrary magnitude survive JSON.
//
// # Storage Interfaces
//
//   - StorageBackend: content-addressed storage for share-set documents and
//     recovery reports, keyed by SHA-256 ContentID
//   - StorageBackendFactory: creates backends from URI strings (file://,
//     s3://, ipfs://, vault://) and replicated multi-backends
//
// Implementations live in the storage package; consumers depend on these
// interfaces so backends stay swappable and mockable in tests.
package interfaces
