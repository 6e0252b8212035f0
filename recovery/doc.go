// Package recovery implements exact-arithmetic secret recovery and wrong
// share detection for threshold sharing over the integers.
//
// A dealer splits a secret s into n shares by sampling a polynomial P of
// degree k-1 with P(0) = s and handing each holder one evaluation
// (x_i, P(x_i)). Any k honest shares determine P exactly; recovery is
// Lagrange interpolation of P at x = 0. When some holders return corrupted
// values, naive recovery silently yields garbage. This package recovers
// the secret anyway, as long as honest shares form a majority among the
// subsets evaluated, and reports which shares were wrong.
//
// # Exact Arithmetic
//
// All interpolation runs over Rational, an immutable arbitrary-precision
// rational kept in lowest terms with a positive denominator. There is no
// floating point anywhere; a subset either reproduces an exact integer
// secret or it is rejected. A fractional interpolation result surfaces as
// ErrNotIntegral and marks the subset inconsistent rather than failing
// detection.
//
// # Detection
//
// Detector evaluates k-subsets of the share set, delivered in
// lexicographic order by CombinationEnumerator, and tallies the integer
// secrets they produce:
//
//   - the secret supported by the most subsets wins; ties break toward
//     the subset enumerated first, so results are reproducible across
//     runs and worker counts
//   - the winning subset's members are inliers; every other share is
//     retested against the winners and classified inlier or wrong
//   - subsets and shares that fail evaluation are skipped or classified
//     wrong, never escalated into a detection failure
//
// Enumeration cost grows as C(n, k), so every detection carries a Budget
// capping combinations and wall-clock time. Exceeding it surfaces
// ErrResourceExceeded or ErrTimeout instead of running unbounded.
//
// # Usage
//
//	detector := recovery.NewDetector(logger, runtime.NumCPU())
//	cls, err := detector.Detect(ctx, set.Shares, set.K, interfaces.Budget{
//		MaxCombinations: 200_000,
//		Deadline:        time.Now().Add(30 * time.Second),
//	})
//	if err != nil {
//		log.Fatalf("detection failed: %v", err)
//	}
//	fmt.Printf("secret %s, wrong shares %v\n", cls.Secret, cls.WrongIDs)
//
// The guarantee is majoritarian, not cryptographic: with fewer honest
// shares than wrong ones the tally can elect a fabricated secret. Callers
// deciding custody disputes should treat the classification as evidence,
// not proof.
package recovery
