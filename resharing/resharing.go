// Package resharing rotates custody after a recovery: the recovered
// secret is split into a fresh set of GF(2^8) shares and each share is
// encrypted for its designated custodian, so compromised or lost shares
// never need to stay in circulation.
//
// The fresh shares use hashicorp's Shamir implementation over bytes,
// which is independent of the integer-polynomial scheme the detector
// recovers from: holders of the old shares learn nothing about the new
// ones.
package resharing

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/vault/shamir"

	"github.com/ruteri/share-recovery-backend/cryptoutils"
	"github.com/ruteri/share-recovery-backend/interfaces"
)

// GF(2^8) splitting bounds imposed by the shamir implementation.
const (
	MinThreshold  = 2
	MaxCustodians = 255
)

// ReissuedShare is one fresh share, ECIES-encrypted for its custodian.
// EncryptedShare serializes as base64 in JSON.
type ReissuedShare struct {
	CustodianID    string `json:"custodian_id"`
	ShareIndex     int    `json:"share_index"`
	EncryptedShare []byte `json:"encrypted_share"`
}

// Reissue splits secret into len(custodians) fresh shares requiring
// threshold of them to reconstruct, and encrypts share i for custodian
// i's public key. The secret may be negative or arbitrarily large.
//
// Bounds: 2 <= threshold <= len(custodians) <= 255.
func Reissue(secret *big.Int, custodians []interfaces.CustodianRecord, threshold int) ([]ReissuedShare, error) {
	if secret == nil {
		return nil, fmt.Errorf("nil secret")
	}
	if threshold < MinThreshold {
		return nil, fmt.Errorf("threshold %d below minimum %d", threshold, MinThreshold)
	}
	if threshold > len(custodians) {
		return nil, fmt.Errorf("threshold %d exceeds custodian count %d", threshold, len(custodians))
	}
	if len(custodians) > MaxCustodians {
		return nil, fmt.Errorf("custodian count %d exceeds maximum %d", len(custodians), MaxCustodians)
	}

	parts, err := shamir.Split(encodeSecret(secret), len(custodians), threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split secret: %w", err)
	}

	reissued := make([]ReissuedShare, len(custodians))
	for i, custodian := range custodians {
		encrypted, err := cryptoutils.EncryptWithPublicKey([]byte(custodian.PubKey), parts[i])
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt share for custodian %s: %w", custodian.ID, err)
		}
		reissued[i] = ReissuedShare{
			CustodianID:    custodian.ID,
			ShareIndex:     i,
			EncryptedShare: encrypted,
		}
	}
	return reissued, nil
}

// CombineReissued reconstructs the secret from at least threshold
// decrypted share payloads. Callers decrypt their ReissuedShare with
// cryptoutils.DecryptWithPrivateKey first; this operates on the
// plaintext parts.
func CombineReissued(parts [][]byte) (*big.Int, error) {
	payload, err := shamir.Combine(parts)
	if err != nil {
		return nil, fmt.Errorf("failed to combine shares: %w", err)
	}
	return decodeSecret(payload)
}

// encodeSecret renders a signed arbitrary-precision integer as bytes:
// one sign byte followed by the big-endian magnitude.
func encodeSecret(secret *big.Int) []byte {
	payload := make([]byte, 1, 1+(secret.BitLen()+7)/8)
	if secret.Sign() < 0 {
		payload[0] = 1
	}
	return append(payload, secret.Bytes()...)
}

func decodeSecret(payload []byte) (*big.Int, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("secret payload empty")
	}
	if payload[0] > 1 {
		return nil, fmt.Errorf("secret payload has invalid sign byte %d", payload[0])
	}
	secret := new(big.Int).SetBytes(payload[1:])
	if payload[0] == 1 {
		secret.Neg(secret)
	}
	return secret, nil
}
