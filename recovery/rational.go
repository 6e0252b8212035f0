package recovery

import (
	"fmt"
	"math/big"
)

// Rational is an immutable arbitrary-precision rational number.
//
// Values are always held in lowest terms with a positive denominator, so
// two equal rationals have identical numerator and denominator. The zero
// value is 0/1 and ready to use. All arithmetic allocates a fresh result
// and never mutates its operands, which makes Rational safe to share
// across goroutines.
type Rational struct {
	r *big.Rat
}

// NewRational constructs the rational num/den reduced to lowest terms.
// Returns ErrInvalidArguments if either argument is nil and
// ErrDivisionByZero if den is zero. The inputs are not retained.
func NewRational(num, den *big.Int) (Rational, error) {
	if num == nil || den == nil {
		return Rational{}, fmt.Errorf("%w: nil numerator or denominator", ErrInvalidArguments)
	}
	if den.Sign() == 0 {
		return Rational{}, fmt.Errorf("%w: denominator is zero", ErrDivisionByZero)
	}
	return Rational{r: new(big.Rat).SetFrac(num, den)}, nil
}

// NewRationalFromInt constructs the rational v/1. A nil v is treated as 0.
func NewRationalFromInt(v *big.Int) Rational {
	if v == nil {
		return Rational{}
	}
	return Rational{r: new(big.Rat).SetInt(v)}
}

// rat returns the backing value, mapping the zero Rational to 0/1.
func (x Rational) rat() *big.Rat {
	if x.r == nil {
		return new(big.Rat)
	}
	return x.r
}

// Add returns x + y.
func (x Rational) Add(y Rational) Rational {
	return Rational{r: new(big.Rat).Add(x.rat(), y.rat())}
}

// Sub returns x - y.
func (x Rational) Sub(y Rational) Rational {
	return Rational{r: new(big.Rat).Sub(x.rat(), y.rat())}
}

// Mul returns x * y.
func (x Rational) Mul(y Rational) Rational {
	return Rational{r: new(big.Rat).Mul(x.rat(), y.rat())}
}

// Div returns x / y, or ErrDivisionByZero if y is zero.
func (x Rational) Div(y Rational) (Rational, error) {
	yr := y.rat()
	if yr.Sign() == 0 {
		return Rational{}, fmt.Errorf("%w: dividing %s by zero", ErrDivisionByZero, x)
	}
	return Rational{r: new(big.Rat).Quo(x.rat(), yr)}, nil
}

// ToInt reduces x to an integer. Returns ErrNotIntegral if the
// denominator in lowest terms is not 1.
func (x Rational) ToInt() (*big.Int, error) {
	xr := x.rat()
	if !xr.IsInt() {
		return nil, fmt.Errorf("%w: %s has denominator %s", ErrNotIntegral, xr.RatString(), xr.Denom())
	}
	return new(big.Int).Set(xr.Num()), nil
}

// Cmp compares x and y and returns -1, 0, or +1.
func (x Rational) Cmp(y Rational) int {
	return x.rat().Cmp(y.rat())
}

// IsZero reports whether x is 0.
func (x Rational) IsZero() bool {
	return x.rat().Sign() == 0
}

// Num returns a copy of the numerator in lowest terms. The sign of the
// value lives here; the denominator is always positive.
func (x Rational) Num() *big.Int {
	return new(big.Int).Set(x.rat().Num())
}

// Denom returns a copy of the denominator in lowest terms.
func (x Rational) Denom() *big.Int {
	return new(big.Int).Set(x.rat().Denom())
}

// String renders x as "a/b", or just "a" when the denominator is 1.
func (x Rational) String() string {
	return x.rat().RatString()
}
