// Package main (cmd/recoveryserver) implements the share recovery server.
//
// The server exposes HTTP endpoints for recovering a secret from a set of
// Shamir-style shares when some of the shares are wrong: one-shot recovery
// from inline shares or uploaded share-set documents, stored recovery
// reports with an SVG rendering, and custodian-driven collection sessions
// that gather shares one signed submission at a time before recovering and
// optionally reissuing fresh shares to the custodians that proved honest.
//
// Detection work is CPU-bound and bounded: every request runs under a
// combination budget and a deadline, both capped by the --max-combinations
// and --max-timeout-seconds flags regardless of what the client asks for.
//
// Persistence is optional. Each --storage flag adds one content-addressed
// backend (file://, s3://, ipfs://, vault://); with more than one, writes
// replicate to all and reads fall through until a replica answers. Without
// any, uploads are rejected and recovery reports are not retained.
//
// The session API authenticates custodians by ECDSA request signatures and
// is enabled by pointing --custodian-keys-file at a JSON registry of
// custodian public keys.
//
// The server implements graceful shutdown on termination signals
// (SIGINT/SIGTERM) and supports health checks, metrics collection, and
// optional profiling endpoints.
//
// Example usage:
//
//	recovery-server --listen-addr=0.0.0.0:8080 \
//	    --storage=file:///var/lib/recovery/ \
//	    --storage=s3://recovery-bucket/prod/?region=eu-west-1 \
//	    --custodian-keys-file=./custodians.json \
//	    --max-combinations=2000000
package main
