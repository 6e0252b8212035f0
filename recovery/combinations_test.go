package recovery

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/share-recovery-backend/interfaces"
)

func collectCombinations(t *testing.T, n, k int, budget interfaces.Budget) ([][]int, error) {
	t.Helper()
	enum, err := NewCombinationEnumerator(n, k, budget)
	require.NoError(t, err)

	var out [][]int
	for enum.Next() {
		assert.Equal(t, uint64(len(out)), enum.Ordinal())
		out = append(out, enum.Combination())
	}
	return out, enum.Err()
}

func TestCombinationEnumerator_Lexicographic(t *testing.T) {
	combos, err := collectCombinations(t, 4, 2, interfaces.Budget{})
	require.NoError(t, err)

	want := [][]int{
		{0, 1}, {0, 2}, {0, 3},
		{1, 2}, {1, 3},
		{2, 3},
	}
	assert.Equal(t, want, combos)
}

func TestCombinationEnumerator_Counts(t *testing.T) {
	tests := []struct {
		name string
		n, k int
		want int
	}{
		{name: "5 choose 2", n: 5, k: 2, want: 10},
		{name: "6 choose 3", n: 6, k: 3, want: 20},
		{name: "n choose n", n: 4, k: 4, want: 1},
		{name: "n choose 0", n: 4, k: 0, want: 1},
		{name: "0 choose 0", n: 0, k: 0, want: 1},
		{name: "n choose 1", n: 7, k: 1, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combos, err := collectCombinations(t, tt.n, tt.k, interfaces.Budget{})
			require.NoError(t, err)
			assert.Len(t, combos, tt.want)
		})
	}
}

func TestCombinationEnumerator_InvalidArguments(t *testing.T) {
	for _, tt := range []struct{ n, k int }{
		{n: -1, k: 0},
		{n: 3, k: -1},
		{n: 2, k: 3},
	} {
		_, err := NewCombinationEnumerator(tt.n, tt.k, interfaces.Budget{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidArguments))
	}
}

func TestCombinationEnumerator_BudgetExceeded(t *testing.T) {
	combos, err := collectCombinations(t, 6, 3, interfaces.Budget{MaxCombinations: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResourceExceeded))
	assert.Len(t, combos, 5)
}

func TestCombinationEnumerator_BudgetExactlyCovers(t *testing.T) {
	// A budget equal to the total count is exhaustion, not an overrun.
	combos, err := collectCombinations(t, 5, 2, interfaces.Budget{MaxCombinations: 10})
	require.NoError(t, err)
	assert.Len(t, combos, 10)
}

func TestCombinationEnumerator_DeadlineExpired(t *testing.T) {
	budget := interfaces.Budget{Deadline: time.Now().Add(-time.Second)}
	enum, err := NewCombinationEnumerator(5, 2, budget)
	require.NoError(t, err)

	assert.False(t, enum.Next())
	assert.True(t, errors.Is(enum.Err(), ErrTimeout))
}

func TestCombinationEnumerator_DeadlineFarAway(t *testing.T) {
	budget := interfaces.Budget{Deadline: time.Now().Add(time.Hour)}
	combos, err := collectCombinations(t, 5, 3, budget)
	require.NoError(t, err)
	assert.Len(t, combos, 10)
}

func TestCombinationEnumerator_CombinationIsACopy(t *testing.T) {
	enum, err := NewCombinationEnumerator(4, 2, interfaces.Budget{})
	require.NoError(t, err)

	require.True(t, enum.Next())
	first := enum.Combination()
	first[0], first[1] = 99, 99

	require.True(t, enum.Next())
	assert.Equal(t, []int{0, 2}, enum.Combination())
}

func TestCombinationEnumerator_DoneStaysDone(t *testing.T) {
	enum, err := NewCombinationEnumerator(2, 2, interfaces.Budget{})
	require.NoError(t, err)

	require.True(t, enum.Next())
	require.False(t, enum.Next())
	require.False(t, enum.Next())
	assert.NoError(t, enum.Err())
}
