// Package main (cmd/recoverctl) implements the operator CLI for the share
// recovery service.
//
// The tool covers the one-shot side of the API: recovering a secret from a
// share-set document (against a server or fully in-process with --local),
// uploading documents for later recovery, fetching stored reports as JSON
// or SVG, and resolving service replicas via DNS SRV. A generate command
// fabricates test documents with optional planted-wrong shares for
// exercising detection end to end.
//
// Recovered secrets print to stdout as part of the classification JSON.
// With --seal-output the secret is instead passphrase-sealed (argon2id key
// derivation, AES-GCM) and written to a file; the unseal command reverses
// it. The passphrase is read from the RECOVERY_PASSPHRASE environment
// variable, never from argv.
//
// Example usage:
//
//	recoverctl generate --n=5 --k=3 --corrupt=4 --output=shares.json
//	recoverctl recover --file=shares.json --local
//	recoverctl --server-addr=http://recovery:8080 upload --file=shares.json
//	recoverctl --discover --server-addr=recovery.example.com recover --file=shares.json
package main
