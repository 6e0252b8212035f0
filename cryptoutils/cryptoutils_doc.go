// Package cryptoutils provides the cryptographic operations backing
// custodian identity and confidential share delivery.
//
// Custodians authenticate to the recovery service with ECDSA P-256 keys
// and receive reissued shares encrypted to their public keys. This
// package implements key pair generation and parsing, identity
// fingerprinting, the custodian registry loader, ECIES asymmetric
// encryption, and passphrase-based sealing of recovered secrets.
//
// # Custodian Identity
//
// A custodian's identity is the SHA-256 fingerprint of their public key
// PEM, hex encoded. The registry document binds fingerprints to keys:
//
//	{
//	  "custodians": [
//	    {"id": "<fingerprint>", "pubkey": "-----BEGIN PUBLIC KEY-----..."}
//	  ]
//	}
//
// LoadCustodianKeys rejects entries whose id does not match the key's
// actual fingerprint.
//
// # Share Encryption
//
// Reissued shares are encrypted per recipient with ECIES:
//
//   - NIST P-256 for key exchange
//   - ECDH for shared secret derivation
//   - SHA-256 for key derivation
//   - AES-GCM for authenticated encryption
//   - A fresh ephemeral key per encryption operation
//
// The encrypted data follows this binary format:
//
//	[ephemeral key length (2 bytes)][ephemeral key][nonce (12 bytes)][ciphertext]
//
// Where:
//   - Ephemeral key length: uint16 in big-endian format
//   - Ephemeral key: elliptic curve point encoded using elliptic.Marshal()
//   - Nonce: 12-byte nonce for AES-GCM
//   - Ciphertext: the encrypted data with GCM authentication tag
//
// # Secret Sealing
//
// Recovered secrets written to disk are sealed under an operator
// passphrase: Argon2id derives the key from the passphrase and a random
// salt, AES-GCM encrypts, and the salt travels in the sealed blob.
//
// # Usage Example
//
//	// Encrypt a reissued share for a custodian from the registry
//	encryptedShare, err := cryptoutils.EncryptWithPublicKey(pubkeyPEM, shareBytes)
//	if err != nil {
//	    log.Fatalf("Failed to encrypt: %v", err)
//	}
//
//	// Custodian side: decrypt with the matching private key
//	shareBytes, err := cryptoutils.DecryptWithPrivateKey(privateKeyPEM, encryptedShare)
//	if err != nil {
//	    log.Fatalf("Failed to decrypt: %v", err)
//	}
package cryptoutils
