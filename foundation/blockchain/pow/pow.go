// Package pow provides the proof of work search used to mine blocks. A block
// is solved when the hex form of its hash starts with a difficulty number of
// zeros.
package pow

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Set of errors returned by the proof of work search.
var (
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrMiningTimeout     = errors.New("mining attempts exhausted")
	ErrNonceSpace        = errors.New("nonce space exhausted")
)

// Difficulty boundaries. A difficulty can't ask for more zeros than a hex
// encoded 32 byte hash has characters.
const (
	DefaultDifficulty = 4
	MaxDifficulty     = 64
)

// reportEvery defines how often the search narrates its progress.
const reportEvery = 1_000_000

// errSolved is used by a worker to stop the other workers once it has
// published a solution.
var errSolved = errors.New("solved")

// =============================================================================

// Target represents the puzzle a block hash must solve.
type Target struct {
	difficulty int
	prefix     string
}

// NewTarget constructs a target that requires difficulty leading zeros.
func NewTarget(difficulty int) (Target, error) {
	if difficulty < 1 || difficulty > MaxDifficulty {
		return Target{}, fmt.Errorf("%w: %d, must be between 1 and %d", ErrInvalidDifficulty, difficulty, MaxDifficulty)
	}

	t := Target{
		difficulty: difficulty,
		prefix:     strings.Repeat("0", difficulty),
	}

	return t, nil
}

// Difficulty returns the number of leading zeros required.
func (t Target) Difficulty() int {
	return t.difficulty
}

// Prefix returns the string every solved hash starts with.
func (t Target) Prefix() string {
	return t.prefix
}

// IsSolved checks the hash to make sure it complies with the POW rules. We
// need to match a difficulty number of 0's.
func (t Target) IsSolved(hash string) bool {
	if len(hash) != 64 {
		return false
	}

	return strings.HasPrefix(hash, t.prefix)
}

// =============================================================================

// Nonces returns the sequence of nonce attempts start, start+stride,
// start+2*stride and so on. The sequence ends when the next nonce would
// overflow.
func Nonces(start uint64, stride uint64) iter.Seq[uint64] {
	if stride == 0 {
		stride = 1
	}

	return func(yield func(uint64) bool) {
		for nonce := start; ; nonce += stride {
			if !yield(nonce) {
				return
			}
			if nonce > math.MaxUint64-stride {
				return
			}
		}
	}
}

// =============================================================================

// Config represents the settings for a search.
type Config struct {
	Target      Target
	MaxAttempts uint64 // Zero means the search is unbounded.
	Workers     int    // Less than two means a single sequential scan.
	EvHandler   func(v string, args ...any)
}

// Solution represents the nonce that solved the puzzle.
type Solution struct {
	Nonce    uint64
	Hash     string
	Attempts uint64
	Duration time.Duration
}

// Search performs the work of mining to find a nonce whose hash solves the
// target. The hash function must be safe for concurrent use when more than
// one worker is configured.
//
// With a single worker the scan starts at nonce 0 and steps by 1, so the
// first solving nonce is always the one returned. With W workers, worker i
// scans i, i+W, i+2W and the first worker to find a solution wins.
func Search(ctx context.Context, cfg Config, hashFn func(nonce uint64) string) (Solution, error) {
	ev := cfg.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	ev("pow: Search: MINING: started: difficulty[%d] workers[%d]", cfg.Target.Difficulty(), max(cfg.Workers, 1))
	defer ev("pow: Search: MINING: completed")

	start := time.Now()

	var sol Solution
	var err error
	switch {
	case cfg.Workers < 2:
		sol, err = searchSingle(ctx, cfg, ev, hashFn)
	default:
		sol, err = searchParallel(ctx, cfg, ev, hashFn)
	}
	sol.Duration = time.Since(start)

	if err != nil {
		return sol, err
	}

	ev("pow: Search: MINING: SOLVED: nonce[%d]: hash[%s]", sol.Nonce, sol.Hash)
	ev("pow: Search: MINING: attempts[%d]: duration[%v]", sol.Attempts, sol.Duration)

	return sol, nil
}

// searchSingle scans the nonce space sequentially.
func searchSingle(ctx context.Context, cfg Config, ev func(v string, args ...any), hashFn func(nonce uint64) string) (Solution, error) {
	var attempts uint64

	for nonce := range Nonces(0, 1) {

		// Did we get cancelled trying to solve the problem.
		if err := ctx.Err(); err != nil {
			ev("pow: Search: MINING: CANCELLED")
			return Solution{Attempts: attempts}, err
		}

		if cfg.MaxAttempts > 0 && attempts >= cfg.MaxAttempts {
			ev("pow: Search: MINING: EXHAUSTED: attempts[%d]", attempts)
			return Solution{Attempts: attempts}, fmt.Errorf("%w after %d attempts", ErrMiningTimeout, attempts)
		}

		attempts++
		if attempts%reportEvery == 0 {
			ev("pow: Search: MINING: attempts[%d]", attempts)
		}

		// Hash the block and check if we have solved the puzzle.
		hash := hashFn(nonce)
		if cfg.Target.IsSolved(hash) {
			return Solution{Nonce: nonce, Hash: hash, Attempts: attempts}, nil
		}
	}

	return Solution{Attempts: attempts}, ErrNonceSpace
}

// searchParallel scans disjoint strided partitions of the nonce space with a
// goroutine per worker.
func searchParallel(ctx context.Context, cfg Config, ev func(v string, args ...any), hashFn func(nonce uint64) string) (Solution, error) {
	var (
		mu       sync.Mutex
		found    *Solution
		attempts atomic.Uint64
	)

	g, gctx := errgroup.WithContext(ctx)
	stride := uint64(cfg.Workers)

	for i := range cfg.Workers {
		g.Go(func() error {
			for nonce := range Nonces(uint64(i), stride) {
				if gctx.Err() != nil {
					return nil
				}

				n := attempts.Add(1)
				if cfg.MaxAttempts > 0 && n > cfg.MaxAttempts {
					return fmt.Errorf("%w after %d attempts", ErrMiningTimeout, cfg.MaxAttempts)
				}
				if n%reportEvery == 0 {
					ev("pow: Search: MINING: attempts[%d]", n)
				}

				hash := hashFn(nonce)
				if !cfg.Target.IsSolved(hash) {
					continue
				}

				// Only the first solution is published.
				mu.Lock()
				if found == nil {
					found = &Solution{Nonce: nonce, Hash: hash}
				}
				mu.Unlock()

				return errSolved
			}

			return nil
		})
	}

	err := g.Wait()

	total := attempts.Load()
	if cfg.MaxAttempts > 0 && total > cfg.MaxAttempts {
		total = cfg.MaxAttempts
	}

	mu.Lock()
	defer mu.Unlock()

	switch {
	case found != nil:
		found.Attempts = total
		return *found, nil

	case ctx.Err() != nil:
		ev("pow: Search: MINING: CANCELLED")
		return Solution{Attempts: total}, ctx.Err()

	case errors.Is(err, ErrMiningTimeout):
		ev("pow: Search: MINING: EXHAUSTED: attempts[%d]", total)
		return Solution{Attempts: total}, err

	case err != nil:
		return Solution{Attempts: total}, err
	}

	return Solution{Attempts: total}, ErrNonceSpace
}
