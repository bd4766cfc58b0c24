// Package identity implements a Fiat-Shamir identification proof. A prover
// convinces a verifier that it knows a square root x of y modulo n without
// revealing x. Each round halves the odds of a prover without x passing.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/csbeno10/Kripto/foundation/blockchain/hasher"
)

// DefaultRounds is the number of rounds run when none is configured.
const DefaultRounds = 10

// MinBits is the smallest modulus size Setup accepts.
const MinBits = 16

// Set of errors returned by the identity package.
var (
	ErrInvalidRounds = errors.New("invalid round count")
	ErrInvalidBits   = errors.New("invalid modulus size")
	ErrProofFailed   = errors.New("proof failed")
	ErrNoCommitment  = errors.New("respond called before commit")
)

var (
	zero = big.NewInt(0)
	one  = big.NewInt(1)
	two  = big.NewInt(2)
)

// =============================================================================

// Params represents the public values shared by prover and verifier.
type Params struct {
	N *big.Int `json:"n"`
	Y *big.Int `json:"y"`
}

// Setup generates a modulus n = p*q from two distinct random primes of bits/2
// bits each, a secret x coprime to n and the public value y = x² mod n.
func Setup(random io.Reader, bits int) (Params, *big.Int, error) {
	if bits < MinBits {
		return Params{}, nil, fmt.Errorf("%w: %d bits, minimum is %d", ErrInvalidBits, bits, MinBits)
	}

	if random == nil {
		random = rand.Reader
	}

	p, err := rand.Prime(random, bits/2)
	if err != nil {
		return Params{}, nil, fmt.Errorf("generate prime: %w", err)
	}

	var q *big.Int
	for {
		q, err = rand.Prime(random, bits-bits/2)
		if err != nil {
			return Params{}, nil, fmt.Errorf("generate prime: %w", err)
		}
		if q.Cmp(p) != 0 {
			break
		}
	}

	n := new(big.Int).Mul(p, q)

	x, err := randomUnit(random, n)
	if err != nil {
		return Params{}, nil, fmt.Errorf("generate secret: %w", err)
	}

	params := Params{
		N: n,
		Y: new(big.Int).Exp(x, two, n),
	}

	return params, x, nil
}

// randomUnit returns a random value in [2, n-1] that is coprime to n.
func randomUnit(random io.Reader, n *big.Int) (*big.Int, error) {
	span := new(big.Int).Sub(n, two)
	gcd := new(big.Int)

	for {
		v, err := rand.Int(random, span)
		if err != nil {
			return nil, err
		}
		v.Add(v, two)

		if gcd.GCD(nil, nil, v, n).Cmp(one) == 0 {
			return v, nil
		}
	}
}

// Challenge derives the challenge bit for a round from the commitment, the
// public values and the round index. Folding in the round index keeps a
// commitment from being replayed against the same challenge in a later round.
func Challenge(h hasher.Hasher, enc hasher.Encoding, t *big.Int, params Params, round int) uint {
	sum := h.Sum(enc.Encode(
		hasher.Int(t),
		hasher.Int(params.N),
		hasher.Int(params.Y),
		hasher.Uint(uint64(round)),
	))

	return uint(sum[len(sum)-1] & 1)
}

// =============================================================================

// Prover represents the party that claims to know the secret.
type Prover interface {
	Commit() (*big.Int, error)
	Respond(c uint) (*big.Int, error)
}

// HonestProver knows the secret and follows the protocol.
type HonestProver struct {
	params Params
	secret *big.Int
	random io.Reader
	r      *big.Int
}

// NewHonestProver constructs a prover for the secret.
func NewHonestProver(params Params, secret *big.Int, random io.Reader) *HonestProver {
	if random == nil {
		random = rand.Reader
	}

	return &HonestProver{
		params: params,
		secret: secret,
		random: random,
	}
}

// Commit picks a fresh random r and returns the commitment t = r² mod n.
func (hp *HonestProver) Commit() (*big.Int, error) {
	r, err := randomUnit(hp.random, hp.params.N)
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	hp.r = r

	return new(big.Int).Exp(r, two, hp.params.N), nil
}

// Respond returns s = r·xᶜ mod n for the last commitment. Each commitment
// answers a single challenge.
func (hp *HonestProver) Respond(c uint) (*big.Int, error) {
	if hp.r == nil {
		return nil, ErrNoCommitment
	}

	s := new(big.Int).Set(hp.r)
	if c&1 == 1 {
		s.Mul(s, hp.secret)
		s.Mod(s, hp.params.N)
	}
	hp.r = nil

	return s, nil
}

// =============================================================================

// Verifier checks the responses of a prover.
type Verifier struct {
	Params Params
}

// Check accepts a round iff s² ≡ t·yᶜ (mod n). Commitments outside (0, n) are
// rejected.
func (v Verifier) Check(t *big.Int, s *big.Int, c uint) bool {
	n := v.Params.N

	if n == nil || v.Params.Y == nil || t == nil || s == nil || t.Cmp(zero) <= 0 || t.Cmp(n) >= 0 {
		return false
	}

	lhs := new(big.Int).Exp(s, two, n)

	rhs := new(big.Int).Set(t)
	if c&1 == 1 {
		rhs.Mul(rhs, v.Params.Y)
	}
	rhs.Mod(rhs, n)

	return lhs.Cmp(rhs) == 0
}

// =============================================================================

// Config represents the settings of a proof.
type Config struct {
	Rounds    int
	Hasher    hasher.Hasher
	Encoding  hasher.Encoding
	EvHandler func(v string, args ...any)
}

func (cfg Config) withDefaults() (Config, error) {
	if cfg.Rounds == 0 {
		cfg.Rounds = DefaultRounds
	}

	if cfg.Rounds < 1 {
		return Config{}, fmt.Errorf("%w: %d", ErrInvalidRounds, cfg.Rounds)
	}

	enc, err := hasher.ParseEncoding(string(cfg.Encoding))
	if err != nil {
		return Config{}, err
	}
	cfg.Encoding = enc

	if cfg.EvHandler == nil {
		cfg.EvHandler = func(v string, args ...any) {}
	}

	return cfg, nil
}

// RoundError is returned when a round fails verification.
type RoundError struct {
	Round int
}

// Error implements the error interface.
func (re *RoundError) Error() string {
	return fmt.Sprintf("round %d: %s", re.Round, ErrProofFailed)
}

// Unwrap returns ErrProofFailed.
func (re *RoundError) Unwrap() error {
	return ErrProofFailed
}

// Run performs the configured number of commit, challenge, response rounds
// against the prover. The proof aborts on the first round that fails.
func Run(ctx context.Context, prover Prover, params Params, cfg Config) error {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return err
	}

	verifier := Verifier{Params: params}

	cfg.EvHandler("identity: Run: started: rounds[%d]", cfg.Rounds)

	for round := range cfg.Rounds {
		if err := ctx.Err(); err != nil {
			return err
		}

		t, err := prover.Commit()
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}

		c := Challenge(cfg.Hasher, cfg.Encoding, t, params, round)

		s, err := prover.Respond(c)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}

		if !verifier.Check(t, s, c) {
			cfg.EvHandler("identity: Run: round[%d]: challenge[%d]: FAILED", round, c)
			return &RoundError{Round: round}
		}

		cfg.EvHandler("identity: Run: round[%d]: challenge[%d]: passed", round, c)
	}

	cfg.EvHandler("identity: Run: completed: all rounds passed")

	return nil
}

// =============================================================================

// Round is one commitment and the response to its challenge.
type Round struct {
	T *big.Int `json:"t"`
	S *big.Int `json:"s"`
}

// Transcript is a non-interactive proof. Anyone holding the public values can
// check it later.
type Transcript struct {
	Rounds []Round `json:"rounds"`
}

// Prove runs the prover through the configured number of rounds and records
// every commitment and response without checking them.
func Prove(ctx context.Context, prover Prover, params Params, cfg Config) (Transcript, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return Transcript{}, err
	}

	tr := Transcript{
		Rounds: make([]Round, 0, cfg.Rounds),
	}

	for round := range cfg.Rounds {
		if err := ctx.Err(); err != nil {
			return Transcript{}, err
		}

		t, err := prover.Commit()
		if err != nil {
			return Transcript{}, fmt.Errorf("round %d: %w", round, err)
		}

		s, err := prover.Respond(Challenge(cfg.Hasher, cfg.Encoding, t, params, round))
		if err != nil {
			return Transcript{}, fmt.Errorf("round %d: %w", round, err)
		}

		tr.Rounds = append(tr.Rounds, Round{T: t, S: s})
	}

	return tr, nil
}

// Verify recomputes every challenge and checks every round of the transcript.
func (tr Transcript) Verify(params Params, h hasher.Hasher, enc hasher.Encoding) error {
	if len(tr.Rounds) == 0 {
		return fmt.Errorf("%w: 0", ErrInvalidRounds)
	}

	verifier := Verifier{Params: params}

	for round, rnd := range tr.Rounds {
		c := Challenge(h, enc, rnd.T, params, round)
		if !verifier.Check(rnd.T, rnd.S, c) {
			return &RoundError{Round: round}
		}
	}

	return nil
}
