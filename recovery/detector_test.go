package recovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/share-recovery-backend/interfaces"
)

func testDetector(workers int) *Detector {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDetector(logger, workers)
}

// polyShares builds shares s1..sN lying on the polynomial with the given
// coefficients (constant term first), evaluated at the given x values.
func polyShares(coeffs []*big.Int, xs ...int64) []interfaces.Share {
	shares := make([]interfaces.Share, len(xs))
	for i, x := range xs {
		xv := big.NewInt(x)
		shares[i] = interfaces.Share{ID: fmt.Sprintf("s%d", i+1), X: xv, Y: evalPoly(coeffs, xv)}
	}
	return shares
}

func sortedIDs(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func TestDetect_SingleWrongShare(t *testing.T) {
	// Three shares on y = 2x + 1, one planted wrong value.
	shares := []interfaces.Share{
		{ID: "A", X: big.NewInt(1), Y: big.NewInt(3)},
		{ID: "B", X: big.NewInt(2), Y: big.NewInt(5)},
		{ID: "C", X: big.NewInt(3), Y: big.NewInt(7)},
		{ID: "D", X: big.NewInt(4), Y: big.NewInt(99)},
	}

	cls, err := testDetector(4).Detect(context.Background(), shares, 3, interfaces.Budget{})
	require.NoError(t, err)

	assert.Equal(t, "1", cls.Secret.String())
	assert.Equal(t, []string{"A", "B", "C"}, sortedIDs(cls.InlierIDs))
	assert.Equal(t, []string{"D"}, cls.WrongIDs)
}

func TestDetect_SingleShareThresholdOne(t *testing.T) {
	shares := []interfaces.Share{
		{ID: "solo", X: big.NewInt(7), Y: big.NewInt(424242)},
	}

	cls, err := testDetector(2).Detect(context.Background(), shares, 1, interfaces.Budget{})
	require.NoError(t, err)

	assert.Equal(t, "424242", cls.Secret.String())
	assert.Equal(t, []string{"solo"}, cls.InlierIDs)
	assert.Empty(t, cls.WrongIDs)
}

func TestDetect_AllConsistent(t *testing.T) {
	coeffs := []*big.Int{big.NewInt(31337), big.NewInt(17), big.NewInt(-9)}
	shares := polyShares(coeffs, 1, 2, 3, 4, 5, 6)

	cls, err := testDetector(4).Detect(context.Background(), shares, 3, interfaces.Budget{})
	require.NoError(t, err)

	assert.Equal(t, "31337", cls.Secret.String())
	assert.Len(t, cls.InlierIDs, 6)
	assert.Empty(t, cls.WrongIDs)
}

func TestDetect_MultipleWrongShares(t *testing.T) {
	coeffs := []*big.Int{big.NewInt(-55), big.NewInt(3), big.NewInt(21)}
	shares := polyShares(coeffs, 1, 2, 3, 4, 5, 6, 7)
	// Corrupt two of the seven.
	shares[2].Y = new(big.Int).Add(shares[2].Y, big.NewInt(1000))
	shares[5].Y = new(big.Int).Sub(shares[5].Y, big.NewInt(7))

	cls, err := testDetector(4).Detect(context.Background(), shares, 3, interfaces.Budget{})
	require.NoError(t, err)

	assert.Equal(t, "-55", cls.Secret.String())
	assert.Equal(t, []string{"s3", "s6"}, sortedIDs(cls.WrongIDs))
	assert.Equal(t, []string{"s1", "s2", "s4", "s5", "s7"}, sortedIDs(cls.InlierIDs))
}

func TestDetect_PermutationInvariant(t *testing.T) {
	coeffs := []*big.Int{big.NewInt(777), big.NewInt(-2), big.NewInt(5)}
	shares := polyShares(coeffs, 1, 2, 3, 4, 5, 6)
	shares[4].Y = new(big.Int).Add(shares[4].Y, big.NewInt(13))

	detector := testDetector(4)
	want, err := detector.Detect(context.Background(), shares, 3, interfaces.Budget{})
	require.NoError(t, err)
	require.Equal(t, []string{"s5"}, want.WrongIDs)

	rng := rand.New(rand.NewSource(1337))
	for i := 0; i < 10; i++ {
		shuffled := append([]interfaces.Share(nil), shares...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got, err := detector.Detect(context.Background(), shuffled, 3, interfaces.Budget{})
		require.NoError(t, err)
		assert.Equal(t, want.Secret.String(), got.Secret.String())
		assert.Equal(t, sortedIDs(want.InlierIDs), sortedIDs(got.InlierIDs))
		assert.Equal(t, sortedIDs(want.WrongIDs), sortedIDs(got.WrongIDs))
	}
}

func TestDetect_ParallelMatchesSerial(t *testing.T) {
	coeffs := []*big.Int{big.NewInt(404), big.NewInt(11), big.NewInt(-6), big.NewInt(2)}
	shares := polyShares(coeffs, 1, 2, 3, 4, 5, 6, 7, 8)
	shares[1].Y = new(big.Int).Add(shares[1].Y, big.NewInt(5))
	shares[6].Y = new(big.Int).Add(shares[6].Y, big.NewInt(-31))

	serial, err := testDetector(1).Detect(context.Background(), shares, 4, interfaces.Budget{})
	require.NoError(t, err)

	for _, workers := range []int{2, 4, 8} {
		parallel, err := testDetector(workers).Detect(context.Background(), shares, 4, interfaces.Budget{})
		require.NoError(t, err)
		assert.Equal(t, serial.Secret.String(), parallel.Secret.String())
		assert.Equal(t, sortedIDs(serial.InlierIDs), sortedIDs(parallel.InlierIDs))
		assert.Equal(t, sortedIDs(serial.WrongIDs), sortedIDs(parallel.WrongIDs))
	}
}

func TestDetect_TieBreaksByEnumerationOrder(t *testing.T) {
	// Two shares on y = x + 10 and two on y = x + 20. Every pair is an
	// equally supported candidate, so the pair enumerated first wins.
	shares := []interfaces.Share{
		{ID: "a1", X: big.NewInt(1), Y: big.NewInt(11)},
		{ID: "a2", X: big.NewInt(2), Y: big.NewInt(12)},
		{ID: "b1", X: big.NewInt(3), Y: big.NewInt(23)},
		{ID: "b2", X: big.NewInt(4), Y: big.NewInt(24)},
	}

	detector := testDetector(4)
	for i := 0; i < 5; i++ {
		cls, err := detector.Detect(context.Background(), shares, 2, interfaces.Budget{})
		require.NoError(t, err)
		assert.Equal(t, "10", cls.Secret.String())
		assert.Equal(t, []string{"a1", "a2"}, sortedIDs(cls.InlierIDs))
		assert.Equal(t, []string{"b1", "b2"}, sortedIDs(cls.WrongIDs))
	}
}

func TestDetect_DuplicateXClassifiedWrong(t *testing.T) {
	// s2 duplicates s1's x coordinate. Subsets containing both are
	// skipped, and the trial set pairing s2 with the core fails the same
	// way, leaving s2 wrong even though its value lies on the polynomial.
	shares := []interfaces.Share{
		{ID: "s1", X: big.NewInt(1), Y: big.NewInt(3)},
		{ID: "s2", X: big.NewInt(1), Y: big.NewInt(3)},
		{ID: "s3", X: big.NewInt(2), Y: big.NewInt(5)},
		{ID: "s4", X: big.NewInt(3), Y: big.NewInt(7)},
	}

	cls, err := testDetector(4).Detect(context.Background(), shares, 2, interfaces.Budget{})
	require.NoError(t, err)

	assert.Equal(t, "1", cls.Secret.String())
	assert.Equal(t, []string{"s1", "s3", "s4"}, sortedIDs(cls.InlierIDs))
	assert.Equal(t, []string{"s2"}, cls.WrongIDs)
}

func TestDetect_NoConsistentSecret(t *testing.T) {
	// The only subset interpolates to 1/2, never an integer.
	shares := []interfaces.Share{
		{ID: "p", X: big.NewInt(1), Y: big.NewInt(1)},
		{ID: "q", X: big.NewInt(3), Y: big.NewInt(2)},
	}

	_, err := testDetector(2).Detect(context.Background(), shares, 2, interfaces.Budget{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoConsistentSecret))
}

func TestDetect_BudgetExceeded(t *testing.T) {
	coeffs := make([]*big.Int, 15)
	for i := range coeffs {
		coeffs[i] = big.NewInt(int64(i + 1))
	}
	xs := make([]int64, 30)
	for i := range xs {
		xs[i] = int64(i + 1)
	}
	shares := polyShares(coeffs, xs...)

	budget := interfaces.Budget{MaxCombinations: 100}
	_, stats, err := testDetector(4).DetectWithStats(context.Background(), shares, 15, budget)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResourceExceeded))
	assert.Equal(t, uint64(100), stats.CombinationsTried)
}

func TestDetect_DeadlineSurfacesAsTimeout(t *testing.T) {
	shares := polyShares([]*big.Int{big.NewInt(5), big.NewInt(1)}, 1, 2, 3)

	t.Run("budget deadline", func(t *testing.T) {
		budget := interfaces.Budget{Deadline: time.Now().Add(-time.Second)}
		_, err := testDetector(2).Detect(context.Background(), shares, 2, budget)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTimeout))
	})

	t.Run("context deadline", func(t *testing.T) {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()
		_, err := testDetector(2).Detect(ctx, shares, 2, interfaces.Budget{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTimeout))
	})
}

func TestDetect_InvalidArguments(t *testing.T) {
	valid := polyShares([]*big.Int{big.NewInt(1), big.NewInt(1)}, 1, 2, 3)

	tests := []struct {
		name   string
		shares []interfaces.Share
		k      int
	}{
		{name: "zero threshold", shares: valid, k: 0},
		{name: "negative threshold", shares: valid, k: -1},
		{name: "threshold exceeds share count", shares: valid, k: 4},
		{name: "empty share ID", shares: []interfaces.Share{{ID: "", X: big.NewInt(1), Y: big.NewInt(1)}}, k: 1},
		{name: "duplicate share IDs", shares: []interfaces.Share{
			{ID: "x", X: big.NewInt(1), Y: big.NewInt(1)},
			{ID: "x", X: big.NewInt(2), Y: big.NewInt(2)},
		}, k: 1},
		{name: "nil coordinate", shares: []interfaces.Share{{ID: "x", X: big.NewInt(1), Y: nil}}, k: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testDetector(2).Detect(context.Background(), tt.shares, tt.k, interfaces.Budget{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidArguments))
		})
	}
}

func TestDetect_LargeSecret(t *testing.T) {
	secret, ok := new(big.Int).SetString("123456789123456789123456789123456789123456789", 10)
	require.True(t, ok)
	coeffs := []*big.Int{secret, big.NewInt(987654321), big.NewInt(-12345)}
	shares := polyShares(coeffs, 1, 2, 3, 4, 5)
	shares[3].Y = new(big.Int).Add(shares[3].Y, big.NewInt(1))

	cls, err := testDetector(4).Detect(context.Background(), shares, 3, interfaces.Budget{})
	require.NoError(t, err)

	assert.Equal(t, secret.String(), cls.Secret.String())
	assert.Equal(t, []string{"s4"}, cls.WrongIDs)
}

func TestDetectWithStats_Counters(t *testing.T) {
	coeffs := []*big.Int{big.NewInt(9), big.NewInt(2)}
	shares := polyShares(coeffs, 1, 2, 3, 4, 5)
	shares[0].Y = new(big.Int).Add(shares[0].Y, big.NewInt(100))

	cls, stats, err := testDetector(4).DetectWithStats(context.Background(), shares, 2, interfaces.Budget{})
	require.NoError(t, err)

	assert.Equal(t, "9", cls.Secret.String())
	assert.Equal(t, uint64(10), stats.CombinationsTried)
	assert.GreaterOrEqual(t, stats.Candidates, 1)
	assert.Greater(t, stats.Elapsed, time.Duration(0))
}

func TestDetect_RandomizedCorruption(t *testing.T) {
	rng := rand.New(rand.NewSource(1337))
	detector := testDetector(4)

	for i := 0; i < 20; i++ {
		k := 2 + rng.Intn(3)
		n := k + 3 + rng.Intn(3)

		coeffs := make([]*big.Int, k)
		for j := range coeffs {
			coeffs[j] = big.NewInt(rng.Int63n(1_000_000) - 500_000)
		}
		xs := make([]int64, n)
		for j := range xs {
			xs[j] = int64(j + 1)
		}
		shares := polyShares(coeffs, xs...)

		wrong := rng.Intn(n)
		delta := big.NewInt(rng.Int63n(1_000_000) + 1)
		shares[wrong].Y = new(big.Int).Add(shares[wrong].Y, delta)

		cls, err := detector.Detect(context.Background(), shares, k, interfaces.Budget{})
		require.NoError(t, err, "iteration %d", i)
		assert.Equal(t, coeffs[0].String(), cls.Secret.String(), "iteration %d", i)
		assert.Equal(t, []string{shares[wrong].ID}, cls.WrongIDs, "iteration %d", i)
	}
}
