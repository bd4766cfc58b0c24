// Package ledger assembles the blockchain packages into a single ledger built
// from validated settings. Both the CLI and the service run through here.
package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/csbeno10/Kripto/business/sys/metrics"
	"github.com/csbeno10/Kripto/business/sys/validate"
	"github.com/csbeno10/Kripto/foundation/blockchain/block"
	"github.com/csbeno10/Kripto/foundation/blockchain/chain"
	"github.com/csbeno10/Kripto/foundation/blockchain/hasher"
	"github.com/csbeno10/Kripto/foundation/blockchain/pow"
	"github.com/csbeno10/Kripto/foundation/blockchain/signature"
	"github.com/csbeno10/Kripto/foundation/identity"
)

// Settings represents everything that can be configured on a ledger.
type Settings struct {
	Difficulty  int    `json:"difficulty" validate:"min=1,max=64"`
	Hash        string `json:"hash" validate:"oneof=sha256 keccak256 blake3"`
	Encoding    string `json:"encoding" validate:"oneof=framed legacy"`
	Signer      string `json:"signer" validate:"oneof=ecdsa schnorr"`
	KeyFile     string `json:"key_file"`
	Workers     int    `json:"workers" validate:"min=0,max=256"`
	MaxAttempts uint64 `json:"max_attempts"`
	Rounds      int    `json:"rounds" validate:"min=1,max=1024"`
	Bits        int    `json:"bits" validate:"min=16,max=4096"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Difficulty: pow.DefaultDifficulty,
		Hash:       string(hasher.SHA256),
		Encoding:   string(hasher.EncodingFramed),
		Signer:     signature.ECDSA{}.Name(),
		Rounds:     identity.DefaultRounds,
		Bits:       512,
	}
}

// Validate checks the settings before any work begins.
func (s Settings) Validate() error {
	if err := validate.Check(s); err != nil {
		return &ConfigError{Err: err}
	}
	return nil
}

// ConfigError is returned when the settings can't be used to build a ledger.
type ConfigError struct {
	Err error
}

// Error implements the error interface.
func (ce *ConfigError) Error() string {
	return "invalid settings: " + ce.Err.Error()
}

// Unwrap returns the underlying error.
func (ce *ConfigError) Unwrap() error {
	return ce.Err
}

// IsConfigError checks if an error of type ConfigError exists.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// =============================================================================

// Option changes how a ledger is built.
type Option func(l *Ledger)

// WithMetrics records mining and proof outcomes.
func WithMetrics(m *metrics.Mining) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// WithClock replaces the system clock used to timestamp blocks.
func WithClock(now func() uint64) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Ledger is a chain together with the settings it was built with.
type Ledger struct {
	settings  Settings
	hasher    hasher.Hasher
	encoding  hasher.Encoding
	chain     *chain.Chain
	metrics   *metrics.Mining
	now       func() uint64
	evHandler func(v string, args ...any)
}

// New validates the settings, builds the hasher, target and key source they
// describe and starts a chain with its genesis block.
func New(ctx context.Context, settings Settings, evHandler func(v string, args ...any), options ...Option) (*Ledger, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	l := Ledger{
		settings:  settings,
		evHandler: evHandler,
	}
	for _, option := range options {
		option(&l)
	}

	h, err := hasher.New(hasher.Strategy(settings.Hash))
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	l.hasher = h

	enc, err := hasher.ParseEncoding(settings.Encoding)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	l.encoding = enc

	target, err := pow.NewTarget(settings.Difficulty)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	keys, err := keySource(settings)
	if err != nil {
		return nil, err
	}

	factory, err := block.NewFactory(block.Config{
		Hasher:      h,
		Encoding:    enc,
		Target:      target,
		MaxAttempts: settings.MaxAttempts,
		Workers:     settings.Workers,
		Keys:        keys,
		Now:         l.now,
		EvHandler:   evHandler,
	})
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	c, err := chain.New(ctx, factory, evHandler)
	if err != nil {
		return nil, err
	}
	l.chain = c

	evHandler("ledger: New: chain started: hash[%s]: encoding[%s]: difficulty[%d]: signer[%s]", h.Strategy(), enc, target.Difficulty(), keys.Scheme().Name())

	return &l, nil
}

// keySource returns a source that signs with the key file when one is
// configured and with a fresh key per block otherwise.
func keySource(settings Settings) (signature.KeySource, error) {
	scheme, err := signature.ParseScheme(settings.Signer)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	if settings.KeyFile == "" {
		return signature.Ephemeral(scheme), nil
	}

	key, err := signature.LoadKey(scheme, settings.KeyFile)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	return signature.Persistent(scheme, key), nil
}

// Settings returns the settings the ledger was built with.
func (l *Ledger) Settings() Settings {
	return l.settings
}

// Chain returns the underlying chain.
func (l *Ledger) Chain() *chain.Chain {
	return l.chain
}

// Mine mines a block for the transactions and appends it to the chain.
func (l *Ledger) Mine(ctx context.Context, data []string) (block.Block, error) {
	start := time.Now()

	b, err := l.chain.Append(ctx, data)
	l.metrics.Mined(time.Since(start), err)

	if err != nil {
		return block.Block{}, err
	}

	return b, nil
}

// MineSample mines the specified number of blocks using generated sample
// transactions.
func (l *Ledger) MineSample(ctx context.Context, blocks int) ([]block.Block, error) {
	mined := make([]block.Block, 0, blocks)

	for i := range blocks {
		index := l.chain.Len()

		b, err := l.Mine(ctx, SampleTransactions(index))
		if err != nil {
			return mined, fmt.Errorf("sample block %d of %d: %w", i+1, blocks, err)
		}

		mined = append(mined, b)
	}

	return mined, nil
}

// SampleTransactions returns the demonstration transactions for a block.
func SampleTransactions(index int) []string {
	return []string{
		fmt.Sprintf("Alice pays Bob %d coins", index),
		fmt.Sprintf("Bob pays Carol %d coins", index*2),
		fmt.Sprintf("Carol pays Dave %d coins", index*3),
	}
}

// =============================================================================

// Failure describes one broken invariant found by Verify.
type Failure struct {
	Index     uint64 `json:"index"`
	Invariant string `json:"invariant"`
	Error     string `json:"error"`
}

// Report is the outcome of verifying the whole chain.
type Report struct {
	Valid    bool      `json:"valid"`
	Blocks   int       `json:"blocks"`
	Failures []Failure `json:"failures"`
}

// Verify checks every block of the chain and reports every failure.
func (l *Ledger) Verify() Report {
	failures := l.chain.VerifyAll()

	r := Report{
		Valid:    len(failures) == 0,
		Blocks:   l.chain.Len(),
		Failures: make([]Failure, len(failures)),
	}

	for i, f := range failures {
		r.Failures[i] = Failure{
			Index:     f.Index,
			Invariant: string(f.Invariant),
			Error:     f.Err.Error(),
		}
	}

	return r
}

// =============================================================================

// Proof is the outcome of an identity proof.
type Proof struct {
	Params      identity.Params     `json:"params"`
	Rounds      int                 `json:"rounds"`
	Passed      bool                `json:"passed"`
	FailedRound *int                `json:"failed_round,omitempty"`
	Transcript  identity.Transcript `json:"transcript"`
}

// Prove generates fresh public values and runs an identity proof with an
// honest prover. A zero rounds value uses the configured count.
func (l *Ledger) Prove(ctx context.Context, rounds int) (Proof, error) {
	if rounds == 0 {
		rounds = l.settings.Rounds
	}
	if rounds < 1 {
		return Proof{}, &ConfigError{Err: fmt.Errorf("%w: %d", identity.ErrInvalidRounds, rounds)}
	}

	params, secret, err := identity.Setup(rand.Reader, l.settings.Bits)
	if err != nil {
		return Proof{}, fmt.Errorf("%w: setup: %w", block.ErrDependency, err)
	}

	cfg := identity.Config{
		Rounds:    rounds,
		Hasher:    l.hasher,
		Encoding:  l.encoding,
		EvHandler: l.evHandler,
	}

	prover := identity.NewHonestProver(params, secret, rand.Reader)

	tr, err := identity.Prove(ctx, prover, params, cfg)
	if err != nil {
		return Proof{}, err
	}

	p := Proof{
		Params:     params,
		Rounds:     rounds,
		Transcript: tr,
		Passed:     true,
	}

	if err := tr.Verify(params, l.hasher, l.encoding); err != nil {
		var re *identity.RoundError
		if !errors.As(err, &re) {
			return Proof{}, err
		}
		p.Passed = false
		p.FailedRound = &re.Round
	}

	l.metrics.Proved(p.Passed)

	return p, nil
}

// Interactive runs the identity proof round by round, aborting on the first
// failed round.
func (l *Ledger) Interactive(ctx context.Context, prover identity.Prover, params identity.Params, rounds int) error {
	cfg := identity.Config{
		Rounds:    rounds,
		Hasher:    l.hasher,
		Encoding:  l.encoding,
		EvHandler: l.evHandler,
	}

	err := identity.Run(ctx, prover, params, cfg)
	if errors.Is(err, identity.ErrInvalidRounds) {
		return &ConfigError{Err: err}
	}

	if err == nil || errors.Is(err, identity.ErrProofFailed) {
		l.metrics.Proved(err == nil)
	}

	return err
}
