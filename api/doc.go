/*
Package api defines the wire types and shared configuration for the share
recovery service.

This package is organized into two main subpackages:

1. recoveryhandler - Request processing logic and session management
2. clients - Client libraries for API interaction

Together, these subpackages implement an HTTP service for detecting
corrupted Shamir-style shares, recovering the underlying secret, and
reissuing fresh shares to custodians.

# System Components

The recovery API works with the following components:

- Detector: Majority-vote fault detection over k-subsets of shares
- StorageBackend: Content-addressed storage for documents and reports
- Custodians: Share holders identified by registered ECDSA public keys

# Key Functionality

- One-shot recovery over inline shares or catalog documents
- Content-addressed share-set upload and retrieval
- Persisted detection reports with SVG visualization
- Collection sessions with signed custodian submissions
- Share reissuance encrypted per custodian after recovery
- Health monitoring and graceful shutdown capabilities

# Wire Conventions

All share coordinates, secrets, and thresholds travel as decimal strings
so arbitrary-precision integers survive JSON round-trips. Binary payloads
(encrypted shares) are base64. Content identifiers are lowercase hex
SHA-256 of the stored bytes.

Every non-2xx response carries a JSON body {"error": ..., "code": ...}.
The code disambiguates failure modes sharing a status: an inconsistent
share set and an exhausted enumeration budget both answer 422, with codes
no_consistent_secret and resource_exceeded respectively.

# Security Model

The one-shot recovery routes are unauthenticated; deployments that need
access control put the service behind their own gateway. The session API
verifies every mutating request against the custodian registry:

- Requests carry X-Custodian-ID and X-Custodian-Signature headers
- The signature covers SHA-256(request path || request body)
- Reissued shares are encrypted for each custodian's public key
- Unsigned status reads never include the recovered secret

See the subpackages for detailed documentation on specific components.
*/
package api
