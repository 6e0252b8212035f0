package recovery

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ratFrom(t *testing.T, num, den int64) Rational {
	t.Helper()
	r, err := NewRational(big.NewInt(num), big.NewInt(den))
	require.NoError(t, err)
	return r
}

func TestNewRational_LowestTerms(t *testing.T) {
	tests := []struct {
		name     string
		num, den int64
		wantNum  string
		wantDen  string
	}{
		{name: "already reduced", num: 2, den: 3, wantNum: "2", wantDen: "3"},
		{name: "common factor", num: 6, den: 4, wantNum: "3", wantDen: "2"},
		{name: "negative denominator normalizes", num: 1, den: -2, wantNum: "-1", wantDen: "2"},
		{name: "double negative", num: -3, den: -6, wantNum: "1", wantDen: "2"},
		{name: "zero numerator", num: 0, den: 7, wantNum: "0", wantDen: "1"},
		{name: "integer value", num: 12, den: 4, wantNum: "3", wantDen: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ratFrom(t, tt.num, tt.den)
			assert.Equal(t, tt.wantNum, r.Num().String())
			assert.Equal(t, tt.wantDen, r.Denom().String())
		})
	}
}

func TestNewRational_Errors(t *testing.T) {
	_, err := NewRational(big.NewInt(1), big.NewInt(0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDivisionByZero))

	_, err = NewRational(nil, big.NewInt(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArguments))

	_, err = NewRational(big.NewInt(1), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArguments))
}

func TestRational_Arithmetic(t *testing.T) {
	half := ratFrom(t, 1, 2)
	third := ratFrom(t, 1, 3)

	assert.Equal(t, "5/6", half.Add(third).String())
	assert.Equal(t, "1/6", half.Sub(third).String())
	assert.Equal(t, "1/6", half.Mul(third).String())

	q, err := half.Div(third)
	require.NoError(t, err)
	assert.Equal(t, "3/2", q.String())

	// Operands must survive the operation untouched.
	assert.Equal(t, "1/2", half.String())
	assert.Equal(t, "1/3", third.String())
}

func TestRational_DivByZero(t *testing.T) {
	_, err := ratFrom(t, 1, 2).Div(Rational{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDivisionByZero))
}

func TestRational_ToInt(t *testing.T) {
	v, err := ratFrom(t, 12, 4).ToInt()
	require.NoError(t, err)
	assert.Equal(t, "3", v.String())

	v, err = ratFrom(t, -9, 3).ToInt()
	require.NoError(t, err)
	assert.Equal(t, "-3", v.String())

	_, err = ratFrom(t, 1, 2).ToInt()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotIntegral))
}

func TestRational_ZeroValue(t *testing.T) {
	var zero Rational
	assert.True(t, zero.IsZero())
	assert.Equal(t, "0", zero.String())
	assert.Equal(t, "1/2", zero.Add(ratFrom(t, 1, 2)).String())

	v, err := zero.ToInt()
	require.NoError(t, err)
	assert.Equal(t, "0", v.String())
}

func TestRational_Cmp(t *testing.T) {
	assert.Equal(t, 0, ratFrom(t, 2, 4).Cmp(ratFrom(t, 1, 2)))
	assert.Equal(t, -1, ratFrom(t, 1, 3).Cmp(ratFrom(t, 1, 2)))
	assert.Equal(t, 1, ratFrom(t, -1, 3).Cmp(ratFrom(t, -1, 2)))
}

func TestRational_LargeValues(t *testing.T) {
	num, ok := new(big.Int).SetString("123456789012345678901234567890123456789", 10)
	require.True(t, ok)
	den := big.NewInt(3)

	r, err := NewRational(num, den)
	require.NoError(t, err)

	v, err := r.Mul(NewRationalFromInt(den)).ToInt()
	require.NoError(t, err)
	assert.Equal(t, num.String(), v.String())
}
