package cryptoutils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const sealingSaltSize = 16

// DeriveSealingKey derives a 32-byte symmetric key from a passphrase and
// salt using Argon2id (time=1, memory=64MiB, threads=4). The same
// passphrase and salt always derive the same key.
func DeriveSealingKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// SealSecret encrypts a recovered secret under a passphrase for storage
// at rest: a fresh random salt feeds Argon2id, and the derived key
// encrypts with AES-GCM. Output layout: [salt][nonce][ciphertext].
func SealSecret(passphrase, plaintext []byte) ([]byte, error) {
	salt := make([]byte, sealingSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aesGCM, err := newGCM(DeriveSealingKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := make([]byte, 0, sealingSaltSize+gcmNonceSize+len(plaintext)+aesGCM.Overhead())
	sealed = append(sealed, salt...)
	sealed = append(sealed, nonce...)
	sealed = aesGCM.Seal(sealed, nonce, plaintext, nil)
	return sealed, nil
}

// OpenSecret reverses SealSecret. A wrong passphrase or tampered blob
// fails GCM authentication.
func OpenSecret(passphrase, sealed []byte) ([]byte, error) {
	if len(sealed) < sealingSaltSize+gcmNonceSize {
		return nil, errors.New("sealed data too short")
	}
	salt := sealed[:sealingSaltSize]
	nonce := sealed[sealingSaltSize : sealingSaltSize+gcmNonceSize]
	ciphertext := sealed[sealingSaltSize+gcmNonceSize:]

	aesGCM, err := newGCM(DeriveSealingKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal: %w", err)
	}
	return plaintext, nil
}
