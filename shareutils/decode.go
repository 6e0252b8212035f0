// Package shareutils converts between the textual share formats crossing
// the service boundary and the integer domain types detection runs on.
//
// Share catalogs arrive as JSON documents keyed by share identifier, with
// each value given in an arbitrary numeric base. This package decodes
// those documents into interfaces.ShareSet, encodes share sets back into
// canonical catalog form, and renders recovery reports as SVG.
package shareutils

import (
	"fmt"
	"math/big"
)

// MinBase and MaxBase bound the numeric bases accepted for share values.
const (
	MinBase = 2
	MaxBase = 36
)

// DecodeValue parses value as an integer in the given base (2 to 36).
// Digits beyond 9 are letters in either case, an optional leading + or -
// is accepted, and arbitrary precision is preserved.
func DecodeValue(value string, base int) (*big.Int, error) {
	if base < MinBase || base > MaxBase {
		return nil, fmt.Errorf("base %d out of range [%d, %d]", base, MinBase, MaxBase)
	}
	if value == "" {
		return nil, fmt.Errorf("empty value")
	}
	v, ok := new(big.Int).SetString(value, base)
	if !ok {
		return nil, fmt.Errorf("invalid base-%d value %q", base, value)
	}
	return v, nil
}

// DeriveX derives a share's x coordinate from its identifier. Catalog
// convention: the identifier is the x coordinate written as a canonical
// positive decimal integer, no sign and no leading zeros. x = 0 is
// rejected because the point at zero is the secret itself.
func DeriveX(id string) (*big.Int, error) {
	if id == "" {
		return nil, fmt.Errorf("empty share identifier")
	}
	x, ok := new(big.Int).SetString(id, 10)
	if !ok {
		return nil, fmt.Errorf("share identifier %q is not a decimal integer", id)
	}
	if x.Sign() <= 0 {
		return nil, fmt.Errorf("share identifier %q must be a positive integer", id)
	}
	if x.String() != id {
		return nil, fmt.Errorf("share identifier %q is not in canonical form", id)
	}
	return x, nil
}
