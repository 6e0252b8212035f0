package recovery

import (
	"fmt"
	"math/big"
)

// Point is a single evaluation (x, y) of the sharing polynomial.
type Point struct {
	X *big.Int
	Y *big.Int
}

// InterpolateAtZero evaluates the unique polynomial of degree < len(points)
// passing through all points at x = 0, using Lagrange interpolation over
// exact rationals:
//
//	P(0) = sum_i y_i * prod_{j != i} (-x_j) / (x_i - x_j)
//
// The x coordinates must be pairwise distinct; a duplicate surfaces as
// ErrDivisionByZero. An empty point set or a nil coordinate is
// ErrInvalidArguments. The result is exact, no rounding ever occurs.
func InterpolateAtZero(points []Point) (Rational, error) {
	if len(points) == 0 {
		return Rational{}, fmt.Errorf("%w: no points to interpolate", ErrInvalidArguments)
	}
	for i, p := range points {
		if p.X == nil || p.Y == nil {
			return Rational{}, fmt.Errorf("%w: point %d has nil coordinate", ErrInvalidArguments, i)
		}
	}

	var sum Rational
	for i, pi := range points {
		term := NewRationalFromInt(pi.Y)
		for j, pj := range points {
			if j == i {
				continue
			}
			num := new(big.Int).Neg(pj.X)
			den := new(big.Int).Sub(pi.X, pj.X)
			factor, err := NewRational(num, den)
			if err != nil {
				return Rational{}, fmt.Errorf("points %d and %d share x=%s: %w", i, j, pi.X, err)
			}
			term = term.Mul(factor)
		}
		sum = sum.Add(term)
	}
	return sum, nil
}

// SecretFromPoints interpolates the points at x = 0 and reduces the result
// to an integer. A non-integral value surfaces as ErrNotIntegral, which
// during detection marks the subset as inconsistent rather than a failure
// of the caller.
func SecretFromPoints(points []Point) (*big.Int, error) {
	val, err := InterpolateAtZero(points)
	if err != nil {
		return nil, err
	}
	return val.ToInt()
}
