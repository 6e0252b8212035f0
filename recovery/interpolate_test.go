package recovery

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalPoly evaluates the polynomial with the given coefficients
// (constant term first) at x, using Horner's rule.
func evalPoly(coeffs []*big.Int, x *big.Int) *big.Int {
	y := new(big.Int)
	for i := len(coeffs) - 1; i >= 0; i-- {
		y.Mul(y, x)
		y.Add(y, coeffs[i])
	}
	return y
}

func polyPoints(coeffs []*big.Int, xs ...int64) []Point {
	points := make([]Point, len(xs))
	for i, x := range xs {
		xv := big.NewInt(x)
		points[i] = Point{X: xv, Y: evalPoly(coeffs, xv)}
	}
	return points
}

func TestInterpolateAtZero(t *testing.T) {
	tests := []struct {
		name   string
		coeffs []int64
		xs     []int64
	}{
		{name: "constant", coeffs: []int64{42}, xs: []int64{5}},
		{name: "linear", coeffs: []int64{7, 3}, xs: []int64{1, 2}},
		{name: "quadratic", coeffs: []int64{1, 2, 3}, xs: []int64{1, 2, 3}},
		{name: "negative x coordinates", coeffs: []int64{5, 2}, xs: []int64{-1, -2}},
		{name: "negative secret", coeffs: []int64{-100, 17, -4, 9}, xs: []int64{1, 2, 3, 4}},
		{name: "scattered x coordinates", coeffs: []int64{12345, -7, 0, 11}, xs: []int64{-5, 3, 17, 101}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coeffs := make([]*big.Int, len(tt.coeffs))
			for i, c := range tt.coeffs {
				coeffs[i] = big.NewInt(c)
			}

			val, err := InterpolateAtZero(polyPoints(coeffs, tt.xs...))
			require.NoError(t, err)

			secret, err := val.ToInt()
			require.NoError(t, err)
			assert.Equal(t, tt.coeffs[0], secret.Int64())
		})
	}
}

func TestInterpolateAtZero_OrderIndependent(t *testing.T) {
	coeffs := []*big.Int{big.NewInt(99), big.NewInt(-3), big.NewInt(8), big.NewInt(1)}
	points := polyPoints(coeffs, 2, 5, 9, 14)

	want, err := InterpolateAtZero(points)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1337))
	for i := 0; i < 20; i++ {
		shuffled := append([]Point(nil), points...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got, err := InterpolateAtZero(shuffled)
		require.NoError(t, err)
		assert.Zero(t, want.Cmp(got))
	}
}

func TestInterpolateAtZero_FractionalResult(t *testing.T) {
	// The line through (1,1) and (3,2) crosses x=0 at 1/2.
	points := []Point{
		{X: big.NewInt(1), Y: big.NewInt(1)},
		{X: big.NewInt(3), Y: big.NewInt(2)},
	}

	val, err := InterpolateAtZero(points)
	require.NoError(t, err)
	assert.Equal(t, "1/2", val.String())

	_, err = SecretFromPoints(points)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotIntegral))
}

func TestInterpolateAtZero_Errors(t *testing.T) {
	t.Run("no points", func(t *testing.T) {
		_, err := InterpolateAtZero(nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidArguments))
	})

	t.Run("nil coordinate", func(t *testing.T) {
		_, err := InterpolateAtZero([]Point{{X: big.NewInt(1), Y: nil}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidArguments))
	})

	t.Run("duplicate x", func(t *testing.T) {
		points := []Point{
			{X: big.NewInt(2), Y: big.NewInt(10)},
			{X: big.NewInt(2), Y: big.NewInt(20)},
		}
		_, err := InterpolateAtZero(points)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDivisionByZero))
	})
}

func TestSecretFromPoints_LargeSecret(t *testing.T) {
	secret, ok := new(big.Int).SetString("9999999999999999999999999999999999999999", 10)
	require.True(t, ok)
	coeffs := []*big.Int{secret, big.NewInt(123456789), big.NewInt(-987654321)}

	got, err := SecretFromPoints(polyPoints(coeffs, 11, 22, 33))
	require.NoError(t, err)
	assert.Equal(t, secret.String(), got.String())
}
