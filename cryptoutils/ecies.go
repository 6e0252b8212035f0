package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
)

const gcmNonceSize = 12

// EncryptWithPublicKey encrypts data for the holder of the given public
// key using ECIES: ECDH agreement against a fresh ephemeral key, SHA-256
// key derivation, and AES-GCM authenticated encryption. Each call
// generates a new ephemeral key, so encrypting the same share twice
// yields unrelated ciphertexts.
//
// Output layout: [ephemeral key length (2 bytes)][ephemeral key][nonce][ciphertext].
func EncryptWithPublicKey(publicKeyPEM []byte, data []byte) ([]byte, error) {
	block, _ := pem.Decode(publicKeyPEM)
	if block == nil {
		return nil, errors.New("failed to decode public key PEM")
	}

	publicKeyInterface, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	publicKey, ok := publicKeyInterface.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("not an ECDSA public key")
	}

	ephemeralKey, err := ecdsa.GenerateKey(publicKey.Curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}

	// ECDH against the recipient key, hashed into an AES-256 key.
	x, _ := publicKey.Curve.ScalarMult(publicKey.X, publicKey.Y, ephemeralKey.D.Bytes())
	sharedSecret := sha256.Sum256(x.Bytes())

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := newGCM(sharedSecret[:])
	if err != nil {
		return nil, err
	}
	ciphertext := aesGCM.Seal(nil, nonce, data, nil)

	ephemeralPublicKeyBytes := elliptic.Marshal(ephemeralKey.Curve, ephemeralKey.X, ephemeralKey.Y)

	result := make([]byte, 2+len(ephemeralPublicKeyBytes)+len(nonce)+len(ciphertext))
	binary.BigEndian.PutUint16(result[0:2], uint16(len(ephemeralPublicKeyBytes)))
	copy(result[2:], ephemeralPublicKeyBytes)
	copy(result[2+len(ephemeralPublicKeyBytes):], nonce)
	copy(result[2+len(ephemeralPublicKeyBytes)+len(nonce):], ciphertext)

	return result, nil
}

// DecryptWithPrivateKey reverses EncryptWithPublicKey using the
// recipient's private key: it parses the wire layout, repeats the ECDH
// agreement against the embedded ephemeral key, and opens the AES-GCM
// ciphertext. Tampered or misdirected ciphertexts fail authentication.
func DecryptWithPrivateKey(privateKeyPEM []byte, encryptedData []byte) ([]byte, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, errors.New("failed to decode private key PEM")
	}

	privateKey, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	if len(encryptedData) < 2 {
		return nil, errors.New("encrypted data too short")
	}
	ephemeralKeyLen := int(binary.BigEndian.Uint16(encryptedData[0:2]))
	if len(encryptedData) < 2+ephemeralKeyLen+gcmNonceSize {
		return nil, errors.New("encrypted data has invalid format")
	}

	ephemeralKeyBytes := encryptedData[2 : 2+ephemeralKeyLen]
	x, y := elliptic.Unmarshal(privateKey.Curve, ephemeralKeyBytes)
	if x == nil {
		return nil, errors.New("failed to unmarshal ephemeral public key")
	}

	xShared, _ := privateKey.Curve.ScalarMult(x, y, privateKey.D.Bytes())
	sharedSecret := sha256.Sum256(xShared.Bytes())

	nonceStart := 2 + ephemeralKeyLen
	nonce := encryptedData[nonceStart : nonceStart+gcmNonceSize]
	ciphertext := encryptedData[nonceStart+gcmNonceSize:]

	aesGCM, err := newGCM(sharedSecret[:])
	if err != nil {
		return nil, err
	}
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	aesBlock, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
