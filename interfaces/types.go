// Package interfaces defines the core types and interfaces for the share
// recovery system. It provides the contract between components without
// implementation details.
package interfaces

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// Share is one party's point on the secret polynomial: an opaque identifier
// plus integer coordinates (x, y). Coordinates are arbitrary precision and
// serialize as decimal strings so values never truncate to a fixed-width
// numeric type.
//
// Within any subset handed to the interpolator all x values must be pairwise
// distinct, otherwise the interpolation denominator degenerates to zero.
type Share struct {
	// ID is the share's opaque identifier, unique within a share set.
	ID string

	// X is the share's evaluation point.
	X *big.Int

	// Y is the polynomial value at X.
	Y *big.Int
}

// NewShare validates and creates a share. Coordinates are copied.
func NewShare(id string, x, y *big.Int) (Share, error) {
	if id == "" {
		return Share{}, errors.New("share ID must not be empty")
	}
	if x == nil || y == nil {
		return Share{}, fmt.Errorf("share %s: coordinates must not be nil", id)
	}
	return Share{ID: id, X: new(big.Int).Set(x), Y: new(big.Int).Set(y)}, nil
}

// Equal compares two shares by ID and coordinates.
func (s Share) Equal(other Share) bool {
	return s.ID == other.ID && s.X.Cmp(other.X) == 0 && s.Y.Cmp(other.Y) == 0
}

// String returns a compact representation for logging.
func (s Share) String() string {
	return fmt.Sprintf("%s=(%s,%s)", s.ID, s.X.String(), s.Y.String())
}

type shareJSON struct {
	ID string `json:"id"`
	X  string `json:"x"`
	Y  string `json:"y"`
}

// MarshalJSON encodes coordinates as decimal strings.
func (s Share) MarshalJSON() ([]byte, error) {
	if s.X == nil || s.Y == nil {
		return nil, fmt.Errorf("share %s: coordinates must not be nil", s.ID)
	}
	return json.Marshal(shareJSON{ID: s.ID, X: s.X.String(), Y: s.Y.String()})
}

// UnmarshalJSON decodes coordinates from decimal strings.
func (s *Share) UnmarshalJSON(data []byte) error {
	var raw shareJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	x, ok := new(big.Int).SetString(raw.X, 10)
	if !ok {
		return fmt.Errorf("share %s: invalid decimal x coordinate %q", raw.ID, raw.X)
	}
	y, ok := new(big.Int).SetString(raw.Y, 10)
	if !ok {
		return fmt.Errorf("share %s: invalid decimal y coordinate %q", raw.ID, raw.Y)
	}

	s.ID = raw.ID
	s.X = x
	s.Y = y
	return nil
}

// ShareSet is a collection of shares together with the reconstruction
// threshold: K correct shares suffice to interpolate the secret.
type ShareSet struct {
	K      int     `json:"k"`
	Shares []Share `json:"shares"`
}

// Validate checks the envelope invariants: 1 <= K <= len(Shares), non-empty
// unique identifiers, and unique x coordinates across the set.
func (ss ShareSet) Validate() error {
	if ss.K < 1 {
		return fmt.Errorf("threshold must be at least 1, got %d", ss.K)
	}
	if ss.K > len(ss.Shares) {
		return fmt.Errorf("threshold %d exceeds share count %d", ss.K, len(ss.Shares))
	}

	seenIDs := make(map[string]struct{}, len(ss.Shares))
	seenX := make(map[string]struct{}, len(ss.Shares))
	for _, share := range ss.Shares {
		if share.ID == "" {
			return errors.New("share ID must not be empty")
		}
		if share.X == nil || share.Y == nil {
			return fmt.Errorf("share %s: coordinates must not be nil", share.ID)
		}
		if _, dup := seenIDs[share.ID]; dup {
			return fmt.Errorf("duplicate share ID %s", share.ID)
		}
		seenIDs[share.ID] = struct{}{}

		xKey := share.X.String()
		if _, dup := seenX[xKey]; dup {
			return fmt.Errorf("share %s: duplicate x coordinate %s", share.ID, xKey)
		}
		seenX[xKey] = struct{}{}
	}
	return nil
}

// IDs returns the share identifiers in set order.
func (ss ShareSet) IDs() []string {
	ids := make([]string, len(ss.Shares))
	for i, share := range ss.Shares {
		ids[i] = share.ID
	}
	return ids
}

// Classification is the outcome of fault detection: the recovered secret and
// a partition of all input share IDs into inliers (consistent with the
// majority secret) and wrong shares (corrupted or inconsistent).
type Classification struct {
	// Secret is the majority-voted secret, the polynomial value at x = 0.
	Secret *big.Int

	// InlierIDs are shares consistent with the majority secret. At least K
	// members when a secret was found.
	InlierIDs []string

	// WrongIDs are shares that contradict the majority secret.
	WrongIDs []string
}

type classificationJSON struct {
	Secret    string   `json:"secret"`
	InlierIDs []string `json:"inlier_ids"`
	WrongIDs  []string `json:"wrong_ids"`
}

// MarshalJSON encodes the secret as a decimal string.
func (c Classification) MarshalJSON() ([]byte, error) {
	if c.Secret == nil {
		return nil, errors.New("classification secret must not be nil")
	}
	return json.Marshal(classificationJSON{
		Secret:    c.Secret.String(),
		InlierIDs: c.InlierIDs,
		WrongIDs:  c.WrongIDs,
	})
}

// UnmarshalJSON decodes the secret from a decimal string.
func (c *Classification) UnmarshalJSON(data []byte) error {
	var raw classificationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	secret, ok := new(big.Int).SetString(raw.Secret, 10)
	if !ok {
		return fmt.Errorf("invalid decimal secret %q", raw.Secret)
	}

	c.Secret = secret
	c.InlierIDs = raw.InlierIDs
	c.WrongIDs = raw.WrongIDs
	return nil
}

// Budget bounds a detection run. C(n, k) grows combinatorially, so callers
// state how much enumeration they are willing to pay for. Zero values mean
// unbounded; servers are expected to cap client-supplied budgets.
type Budget struct {
	// MaxCombinations is the maximum number of k-subsets to enumerate.
	// Zero means no count limit.
	MaxCombinations uint64

	// Deadline is the wall-clock cutoff for the run. Zero means no deadline.
	Deadline time.Time
}

// Expired reports whether the deadline has passed at time now.
func (b Budget) Expired(now time.Time) bool {
	return !b.Deadline.IsZero() && now.After(b.Deadline)
}

// CustodianRecord identifies one share custodian: an ID (by convention the
// hex SHA-256 fingerprint of the public key PEM) and the ECDSA public key in
// PEM format, used to verify submissions and encrypt reissued shares.
type CustodianRecord struct {
	ID     string `json:"id"`
	PubKey string `json:"pubkey"`
}
