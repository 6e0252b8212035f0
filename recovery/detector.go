package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"runtime"
	"sync"
	"time"

	"github.com/ruteri/share-recovery-backend/interfaces"
)

// Detector locates shares inconsistent with the majority of a share set
// and recovers the secret the majority encodes.
//
// Detection evaluates candidate subsets of size k, tallies the integer
// secrets they produce, and picks the secret backed by the most subsets.
// Ties resolve in favor of the candidate that appeared first in
// lexicographic enumeration order, so results are reproducible regardless
// of worker count. The detector itself is stateless and safe for
// concurrent use; each Detect call runs its own worker pool.
//
// With fewer than k honest shares, or exactly k shares one of which is
// wrong, the majority can land on a fabricated secret. The classification
// is a heuristic: trustworthy when honest shares outnumber the threshold,
// never a proof.
type Detector struct {
	log     *slog.Logger
	workers int
}

// Stats summarizes the work a single detection performed.
type Stats struct {
	// CombinationsTried counts subsets evaluated, including skipped ones.
	CombinationsTried uint64

	// SubsetsSkipped counts subsets dropped for failing to produce an
	// integer secret (duplicate x or fractional interpolation result).
	SubsetsSkipped uint64

	// Candidates is the number of distinct integer secrets observed.
	Candidates int

	// Elapsed is the wall-clock duration of the detection.
	Elapsed time.Duration
}

// NewDetector creates a detector running workers parallel evaluation
// goroutines per call. A workers value below 1 selects runtime.NumCPU. A
// nil logger discards output.
func NewDetector(log *slog.Logger, workers int) *Detector {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Detector{log: log, workers: workers}
}

// Detect classifies shares into inliers and wrong shares and recovers the
// majority secret.
//
// Parameters:
//   - ctx: cancellation and deadline; a context deadline surfaces as
//     ErrTimeout just like a budget deadline
//   - shares: the full share set, at least k entries with unique IDs
//   - k: the reconstruction threshold the set was created with
//   - budget: caps on enumeration; zero fields mean unlimited
//
// Returns a Classification whose InlierIDs and WrongIDs partition the
// input IDs, or an error: ErrInvalidArguments for malformed input,
// ErrNoConsistentSecret when no subset produced an integer secret,
// ErrResourceExceeded or ErrTimeout when the budget cut enumeration
// short. Individual subsets or shares failing during evaluation never
// fail the call; they are skipped or classified wrong.
func (d *Detector) Detect(ctx context.Context, shares []interfaces.Share, k int, budget interfaces.Budget) (interfaces.Classification, error) {
	cls, _, err := d.DetectWithStats(ctx, shares, k, budget)
	return cls, err
}

// DetectWithStats is Detect plus counters describing the enumeration
// work, for callers that report or meter detection runs.
func (d *Detector) DetectWithStats(ctx context.Context, shares []interfaces.Share, k int, budget interfaces.Budget) (cls interfaces.Classification, stats Stats, err error) {
	started := time.Now()
	defer func() { stats.Elapsed = time.Since(started) }()

	n := len(shares)
	if k < 1 {
		return cls, stats, fmt.Errorf("%w: threshold %d must be at least 1", ErrInvalidArguments, k)
	}
	if k > n {
		return cls, stats, fmt.Errorf("%w: threshold %d exceeds share count %d", ErrInvalidArguments, k, n)
	}

	points := make([]Point, n)
	seenIDs := make(map[string]bool, n)
	for i, s := range shares {
		if s.ID == "" {
			return cls, stats, fmt.Errorf("%w: share %d has empty ID", ErrInvalidArguments, i)
		}
		if seenIDs[s.ID] {
			return cls, stats, fmt.Errorf("%w: duplicate share ID %q", ErrInvalidArguments, s.ID)
		}
		seenIDs[s.ID] = true
		if s.X == nil || s.Y == nil {
			return cls, stats, fmt.Errorf("%w: share %q has nil coordinate", ErrInvalidArguments, s.ID)
		}
		points[i] = Point{X: s.X, Y: s.Y}
	}

	// Fold the context deadline into the budget so both trip the same way.
	if dl, ok := ctx.Deadline(); ok {
		if budget.Deadline.IsZero() || dl.Before(budget.Deadline) {
			budget.Deadline = dl
		}
	}

	tally, sweepStats, err := d.sweep(ctx, points, k, budget)
	stats = sweepStats
	if err != nil {
		return cls, stats, err
	}
	if len(tally) == 0 {
		return cls, stats, fmt.Errorf("%w: tried %d combinations of %d shares", ErrNoConsistentSecret, stats.CombinationsTried, n)
	}

	best := pickWinner(tally)

	inlier := make([]bool, n)
	for _, idx := range best.indices {
		inlier[idx] = true
	}
	d.classifyRemaining(points, inlier, best.indices[:k-1], best.secret)

	cls.Secret = new(big.Int).Set(best.secret)
	for i, s := range shares {
		if inlier[i] {
			cls.InlierIDs = append(cls.InlierIDs, s.ID)
		} else {
			cls.WrongIDs = append(cls.WrongIDs, s.ID)
		}
	}

	d.log.Debug("share classification complete",
		"shares", n,
		"threshold", k,
		"combinations", stats.CombinationsTried,
		"skipped", stats.SubsetsSkipped,
		"candidates", stats.Candidates,
		"inliers", len(cls.InlierIDs),
		"wrong", len(cls.WrongIDs),
		"elapsed", time.Since(started))
	return cls, stats, nil
}

// comboJob is one subset handed to an evaluation worker.
type comboJob struct {
	ordinal uint64
	indices []int
}

// comboResult carries a worker's verdict; secret is nil when the subset
// was inconsistent and skipped.
type comboResult struct {
	ordinal uint64
	indices []int
	secret  *big.Int
}

// candidateTally accumulates support for one candidate secret. indices
// holds the combination at the lowest supporting ordinal, which serves as
// the representative subset for classification.
type candidateTally struct {
	secret  *big.Int
	count   uint64
	ordinal uint64
	indices []int
}

// sweep enumerates k-subsets under the budget and tallies the secrets
// they interpolate to, fanning evaluation out over the worker pool. The
// tally is keyed by the secret's decimal representation.
func (d *Detector) sweep(ctx context.Context, points []Point, k int, budget interfaces.Budget) (map[string]*candidateTally, Stats, error) {
	var stats Stats

	enum, err := NewCombinationEnumerator(len(points), k, budget)
	if err != nil {
		return nil, stats, err
	}

	workCh := make(chan comboJob, d.workers)
	resultCh := make(chan comboResult, d.workers)

	var wg sync.WaitGroup
	for w := 0; w < d.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subset := make([]Point, k)
			for job := range workCh {
				for i, idx := range job.indices {
					subset[i] = points[idx]
				}
				secret, err := SecretFromPoints(subset)
				if err != nil {
					// Inconsistent subsets are expected here, drop them.
					resultCh <- comboResult{ordinal: job.ordinal}
					continue
				}
				resultCh <- comboResult{ordinal: job.ordinal, indices: job.indices, secret: secret}
			}
		}()
	}

	go func() {
		defer close(workCh)
		for enum.Next() {
			job := comboJob{ordinal: enum.Ordinal(), indices: enum.Combination()}
			select {
			case workCh <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	tally := make(map[string]*candidateTally)
	for res := range resultCh {
		stats.CombinationsTried++
		if res.secret == nil {
			stats.SubsetsSkipped++
			continue
		}
		key := res.secret.String()
		cand, ok := tally[key]
		if !ok {
			tally[key] = &candidateTally{secret: res.secret, count: 1, ordinal: res.ordinal, indices: res.indices}
			continue
		}
		cand.count++
		if res.ordinal < cand.ordinal {
			cand.ordinal = res.ordinal
			cand.indices = res.indices
		}
	}
	stats.Candidates = len(tally)

	if err := enum.Err(); err != nil {
		return nil, stats, err
	}
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, stats, fmt.Errorf("%w: context deadline passed after %d combinations", ErrTimeout, stats.CombinationsTried)
		}
		return nil, stats, fmt.Errorf("detection cancelled: %w", err)
	}
	return tally, stats, nil
}

// pickWinner selects the candidate with the most supporting subsets,
// breaking ties toward the lower representative ordinal. Ordinals are
// unique per candidate, so the winner does not depend on map order.
func pickWinner(tally map[string]*candidateTally) *candidateTally {
	var best *candidateTally
	for _, cand := range tally {
		if best == nil || cand.count > best.count ||
			(cand.count == best.count && cand.ordinal < best.ordinal) {
			best = cand
		}
	}
	return best
}

// classifyRemaining marks shares outside the winning subset as inliers
// when interpolating them together with the first k-1 members of that
// subset reproduces the majority secret. Failed trials leave the share
// classified wrong; they never abort detection.
func (d *Detector) classifyRemaining(points []Point, inlier []bool, prefix []int, secret *big.Int) {
	remaining := 0
	for i := range points {
		if !inlier[i] {
			remaining++
		}
	}
	if remaining == 0 {
		return
	}

	trialBase := make([]Point, 0, len(prefix)+1)
	for _, idx := range prefix {
		trialBase = append(trialBase, points[idx])
	}

	idxCh := make(chan int)
	var wg sync.WaitGroup
	workers := d.workers
	if workers > remaining {
		workers = remaining
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trial := make([]Point, len(trialBase)+1)
			copy(trial, trialBase)
			for i := range idxCh {
				trial[len(trial)-1] = points[i]
				val, err := SecretFromPoints(trial)
				if err == nil && val.Cmp(secret) == 0 {
					inlier[i] = true
				}
			}
		}()
	}
	for i := range points {
		if !inlier[i] {
			idxCh <- i
		}
	}
	close(idxCh)
	wg.Wait()
}
