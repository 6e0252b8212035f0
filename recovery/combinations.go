package recovery

import (
	"fmt"
	"time"

	"github.com/ruteri/share-recovery-backend/interfaces"
)

// CombinationEnumerator streams all k-element subsets of {0, ..., n-1} in
// lexicographic order without materializing the full sequence. Usage
// follows the scanner pattern:
//
//	enum, err := NewCombinationEnumerator(n, k, budget)
//	for enum.Next() {
//		evaluate(enum.Combination())
//	}
//	if err := enum.Err(); err != nil { ... }
//
// The budget is charged per emitted combination. When the budget or
// deadline runs out while combinations remain, Next returns false and Err
// reports ErrResourceExceeded or ErrTimeout; after natural exhaustion Err
// is nil. A budget exactly equal to the total count drains cleanly.
//
// An enumerator is not safe for concurrent use.
type CombinationEnumerator struct {
	n, k    int
	budget  interfaces.Budget
	indices []int
	started bool
	done    bool
	emitted uint64
	err     error
}

// NewCombinationEnumerator prepares enumeration of k-subsets of n
// elements. Returns ErrInvalidArguments if n or k is negative or k > n. A
// zero budget field means that limit is not enforced.
func NewCombinationEnumerator(n, k int, budget interfaces.Budget) (*CombinationEnumerator, error) {
	if n < 0 || k < 0 {
		return nil, fmt.Errorf("%w: negative set size n=%d k=%d", ErrInvalidArguments, n, k)
	}
	if k > n {
		return nil, fmt.Errorf("%w: cannot choose %d elements from %d", ErrInvalidArguments, k, n)
	}
	return &CombinationEnumerator{
		n:       n,
		k:       k,
		budget:  budget,
		indices: make([]int, k),
	}, nil
}

// Next advances to the next combination. It returns false when the
// sequence is exhausted or the budget ran out; distinguish the two via
// Err.
func (e *CombinationEnumerator) Next() bool {
	if e.done {
		return false
	}

	// Locate the next combination before charging the budget, so hitting
	// the limit on the final combination still counts as exhaustion.
	pivot := -1
	if e.started {
		for i := e.k - 1; i >= 0; i-- {
			if e.indices[i] != i+e.n-e.k {
				pivot = i
				break
			}
		}
		if pivot < 0 {
			e.done = true
			return false
		}
	}

	if e.budget.MaxCombinations > 0 && e.emitted >= e.budget.MaxCombinations {
		e.done = true
		e.err = fmt.Errorf("%w: stopped after %d combinations", ErrResourceExceeded, e.emitted)
		return false
	}
	if e.budget.Expired(time.Now()) {
		e.done = true
		e.err = fmt.Errorf("%w: stopped after %d combinations", ErrTimeout, e.emitted)
		return false
	}

	if e.started {
		e.indices[pivot]++
		for i := pivot + 1; i < e.k; i++ {
			e.indices[i] = e.indices[i-1] + 1
		}
	} else {
		e.started = true
		for i := range e.indices {
			e.indices[i] = i
		}
	}
	e.emitted++
	return true
}

// Combination returns a copy of the current combination. Valid only after
// Next returned true.
func (e *CombinationEnumerator) Combination() []int {
	return append([]int(nil), e.indices...)
}

// Ordinal returns the zero-based position of the current combination in
// lexicographic order. Valid only after Next returned true.
func (e *CombinationEnumerator) Ordinal() uint64 {
	return e.emitted - 1
}

// Err returns nil after natural exhaustion, ErrResourceExceeded when the
// combination budget cut enumeration short, or ErrTimeout when the
// deadline did.
func (e *CombinationEnumerator) Err() error {
	return e.err
}
