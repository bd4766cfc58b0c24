package pow_test

import (
	"context"
	"errors"
	"math"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/csbeno10/Kripto/foundation/blockchain/hasher"
	"github.com/csbeno10/Kripto/foundation/blockchain/pow"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func hashFn(nonce uint64) string {
	return hasher.Default().DigestString("block:" + strconv.FormatUint(nonce, 10))
}

// =============================================================================

func Test_Target(t *testing.T) {
	t.Log("Given the need to construct proof of work targets.")
	{
		for _, d := range []int{-1, 0, 65} {
			if _, err := pow.NewTarget(d); !errors.Is(err, pow.ErrInvalidDifficulty) {
				t.Fatalf("\t%s\tShould reject difficulty %d, got %v.", failed, d, err)
			}
			t.Logf("\t%s\tShould reject difficulty %d.", success, d)
		}

		target, err := pow.NewTarget(pow.DefaultDifficulty)
		if err != nil {
			t.Fatalf("\t%s\tShould accept the default difficulty: %v", failed, err)
		}
		t.Logf("\t%s\tShould accept the default difficulty.", success)

		if target.Prefix() != "0000" {
			t.Fatalf("\t%s\tShould get a prefix of four zeros, got %q.", failed, target.Prefix())
		}
		t.Logf("\t%s\tShould get a prefix of four zeros.", success)

		solved := "0000" + hasher.Default().DigestString("x")[4:]
		if !target.IsSolved(solved) {
			t.Fatalf("\t%s\tShould accept a hash with the prefix.", failed)
		}
		t.Logf("\t%s\tShould accept a hash with the prefix.", success)

		if target.IsSolved("1" + solved[1:]) {
			t.Fatalf("\t%s\tShould reject a hash without the prefix.", failed)
		}
		t.Logf("\t%s\tShould reject a hash without the prefix.", success)

		if target.IsSolved("0000") {
			t.Fatalf("\t%s\tShould reject a hash of the wrong length.", failed)
		}
		t.Logf("\t%s\tShould reject a hash of the wrong length.", success)
	}
}

func Test_Nonces(t *testing.T) {
	t.Log("Given the need to iterate nonce attempts.")
	{
		var got []uint64
		for n := range pow.Nonces(2, 3) {
			got = append(got, n)
			if len(got) == 5 {
				break
			}
		}

		exp := []uint64{2, 5, 8, 11, 14}
		if !slices.Equal(got, exp) {
			t.Fatalf("\t%s\tShould get %v, got %v.", failed, exp, got)
		}
		t.Logf("\t%s\tShould get a strided sequence.", success)

		got = slices.Collect(pow.Nonces(math.MaxUint64-1, 1))
		exp = []uint64{math.MaxUint64 - 1, math.MaxUint64}
		if !slices.Equal(got, exp) {
			t.Fatalf("\t%s\tShould stop before overflowing, got %v.", failed, got)
		}
		t.Logf("\t%s\tShould stop before overflowing.", success)
	}
}

func Test_SearchSingle(t *testing.T) {
	target, err := pow.NewTarget(2)
	if err != nil {
		t.Fatal(err)
	}

	t.Log("Given the need to mine sequentially.")
	{
		var events int
		cfg := pow.Config{
			Target:    target,
			EvHandler: func(v string, args ...any) { events++ },
		}

		sol, err := pow.Search(context.Background(), cfg, hashFn)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to find a solution: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to find a solution.", success)

		if !target.IsSolved(sol.Hash) || sol.Hash != hashFn(sol.Nonce) {
			t.Fatalf("\t%s\tShould get a valid solution, got %d %s.", failed, sol.Nonce, sol.Hash)
		}
		t.Logf("\t%s\tShould get a valid solution.", success)

		for n := uint64(0); n < sol.Nonce; n++ {
			if target.IsSolved(hashFn(n)) {
				t.Fatalf("\t%s\tShould get the first solving nonce, %d solves before %d.", failed, n, sol.Nonce)
			}
		}
		t.Logf("\t%s\tShould get the first solving nonce.", success)

		if sol.Attempts != sol.Nonce+1 {
			t.Fatalf("\t%s\tShould count the attempts, got %d exp %d.", failed, sol.Attempts, sol.Nonce+1)
		}
		t.Logf("\t%s\tShould count the attempts.", success)

		if events == 0 {
			t.Fatalf("\t%s\tShould narrate the search.", failed)
		}
		t.Logf("\t%s\tShould narrate the search.", success)
	}
}

func Test_SearchParallel(t *testing.T) {
	target, err := pow.NewTarget(3)
	if err != nil {
		t.Fatal(err)
	}

	t.Log("Given the need to mine with several workers.")
	{
		sol, err := pow.Search(context.Background(), pow.Config{Target: target, Workers: 4}, hashFn)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to find a solution: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to find a solution.", success)

		if !target.IsSolved(sol.Hash) || sol.Hash != hashFn(sol.Nonce) {
			t.Fatalf("\t%s\tShould get a valid solution, got %d %s.", failed, sol.Nonce, sol.Hash)
		}
		t.Logf("\t%s\tShould get a valid solution.", success)
	}
}

func Test_MaxAttempts(t *testing.T) {
	target, err := pow.NewTarget(pow.MaxDifficulty)
	if err != nil {
		t.Fatal(err)
	}

	t.Log("Given the need to cap the number of attempts.")
	{
		for _, workers := range []int{1, 4} {
			cfg := pow.Config{Target: target, MaxAttempts: 100, Workers: workers}

			sol, err := pow.Search(context.Background(), cfg, hashFn)
			if !errors.Is(err, pow.ErrMiningTimeout) {
				t.Fatalf("\t%s\tworkers[%d]: Should get ErrMiningTimeout, got %v.", failed, workers, err)
			}
			t.Logf("\t%s\tworkers[%d]: Should get ErrMiningTimeout.", success, workers)

			if sol.Attempts != 100 {
				t.Fatalf("\t%s\tworkers[%d]: Should stop at the cap, got %d.", failed, workers, sol.Attempts)
			}
			t.Logf("\t%s\tworkers[%d]: Should stop at the cap.", success, workers)
		}
	}
}

func Test_Cancel(t *testing.T) {
	target, err := pow.NewTarget(pow.MaxDifficulty)
	if err != nil {
		t.Fatal(err)
	}

	t.Log("Given the need to cancel a search.")
	{
		for _, workers := range []int{1, 4} {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)

			_, err := pow.Search(ctx, pow.Config{Target: target, Workers: workers}, hashFn)
			cancel()

			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("\t%s\tworkers[%d]: Should get DeadlineExceeded, got %v.", failed, workers, err)
			}
			t.Logf("\t%s\tworkers[%d]: Should get DeadlineExceeded.", success, workers)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := pow.Search(ctx, pow.Config{Target: target}, hashFn); !errors.Is(err, context.Canceled) {
			t.Fatalf("\t%s\tShould get Canceled, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould get Canceled.", success)
	}
}
