package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
)

// GenerateCustodianKeyPair generates a new ECDSA P-256 key pair for a
// custodian. The private key is returned in SEC1 "EC PRIVATE KEY" PEM
// form and the public key in PKIX "PUBLIC KEY" PEM form; the public PEM
// is what goes into the custodian registry and what fingerprinting and
// share encryption operate on.
func GenerateCustodianKeyPair() (string, string, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate ECDSA key: %w", err)
	}

	privateKeyBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: privateKeyBytes,
	})

	publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	publicKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicKeyBytes,
	})

	return string(privateKeyPEM), string(publicKeyPEM), nil
}

// ParsePrivateKey parses a SEC1 "EC PRIVATE KEY" PEM block into an ECDSA
// private key.
func ParsePrivateKey(privateKeyPEM []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, errors.New("failed to decode PEM block containing private key")
	}

	privateKey, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ECDSA private key: %w", err)
	}
	return privateKey, nil
}

// ParsePublicKey parses a PKIX "PUBLIC KEY" PEM block into an ECDSA
// public key.
func ParsePublicKey(publicKeyPEM []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(publicKeyPEM)
	if block == nil {
		return nil, errors.New("failed to decode PEM block containing public key")
	}

	publicKeyInterface, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	publicKey, ok := publicKeyInterface.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("not an ECDSA public key")
	}
	return publicKey, nil
}

// ComputeFingerprint computes a custodian's identity fingerprint: the
// SHA-256 hash of the public key PEM, hex encoded. Registry entries,
// signed request headers, and reissued-share addressing all use this
// value.
func ComputeFingerprint(publicKeyPEM []byte) string {
	h := sha256.Sum256(publicKeyPEM)
	return hex.EncodeToString(h[:])
}

// LoadCustodianKeys reads a custodian registry document and returns the
// custodian ID to public key PEM mapping. Registry format:
//
//	{
//	  "custodians": [
//	    {"id": "<fingerprint>", "pubkey": "-----BEGIN PUBLIC KEY-----..."},
//	    ...
//	  ]
//	}
//
// Every entry's key must parse as a valid ECDSA public key and its id
// must match the key's fingerprint, so a registry cannot bind one
// custodian's identity to another's key.
func LoadCustodianKeys(r io.Reader) (map[string][]byte, error) {
	var data struct {
		Custodians []struct {
			ID     string `json:"id"`
			PubKey string `json:"pubkey"`
		} `json:"custodians"`
	}

	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode custodian registry JSON: %w", err)
	}

	result := make(map[string][]byte)
	for _, custodian := range data.Custodians {
		if _, err := ParsePublicKey([]byte(custodian.PubKey)); err != nil {
			return nil, fmt.Errorf("invalid public key for custodian %s: %w", custodian.ID, err)
		}
		if fp := ComputeFingerprint([]byte(custodian.PubKey)); fp != custodian.ID {
			return nil, fmt.Errorf("custodian %s id does not match key fingerprint %s", custodian.ID, fp)
		}
		if _, dup := result[custodian.ID]; dup {
			return nil, fmt.Errorf("duplicate custodian id %s", custodian.ID)
		}
		result[custodian.ID] = []byte(custodian.PubKey)
	}
	return result, nil
}
