/*
Package clients provides client libraries for interacting with the share
recovery API.

This package implements client interfaces for both the open recovery API
and the custodian session API, handling request signing, response
parsing, and structured error reporting.

# Client Types

The package provides two main client types:

1. RecoveryClient - One-shot recovery, document upload, and report retrieval
2. CustodianClient - Signed session operations for share custodians

# RecoveryClient Features

RecoveryClient implements api.RecoveryProvider:

- Recover - Run fault detection over inline shares or a document
- UploadShareSet - Store a share-set document by content identifier
- RecoverStored - Run fault detection over a stored document
- GetReport - Fetch a stored detection report
- GetReportSVG - Fetch the SVG visualization of a report

# CustodianClient Features

CustodianClient implements api.SessionProvider:

- CreateSession - Open a collection session
- GetSession - Poll session state, including the report once complete
- SubmitShare - Submit this custodian's share point
- Reissue - Request fresh encrypted shares after a completed recovery

# Security Model

Session requests are signed with the custodian's ECDSA private key:

- The signed message is SHA-256(request path || request body)
- Signatures travel as base64 ASN.1 in the X-Custodian-Signature header
- The server verifies against the custodian's registered public key
- Reissued shares are encrypted for each custodian's public key

# Error Handling

Non-2xx responses decode into APIError, exposing the HTTP status and the
machine-readable code from the JSON error body. Clients distinguish an
inconsistent share set (no_consistent_secret) from an exhausted
enumeration budget (resource_exceeded) by code, both arriving as 422.

# Example Usage

	// One-shot recovery over inline shares
	client := clients.NewRecoveryClient("http://localhost:8080")
	resp, err := client.Recover(api.RecoverRequest{
	    K: 3,
	    Shares: []api.ShareDTO{
	        {ID: "alice", X: "1", Y: "49"},
	        {ID: "bob", X: "2", Y: "72"},
	        {ID: "carol", X: "3", Y: "97"},
	        {ID: "dave", X: "4", Y: "124"},
	    },
	})

	// Custodian submitting a share to a session
	privateKey, _ := cryptoutils.ParsePrivateKey(privateKeyPEM)
	custodian := clients.NewCustodianClient(
	    "http://localhost:8080",
	    "b1946ac92492d2347c6235b4d2611184",
	    privateKey,
	)
	status, err := custodian.SubmitShare(sessionID, api.SubmitShareRequest{
	    X: "2",
	    Y: "72",
	})
*/
package clients
