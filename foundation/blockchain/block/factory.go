package block

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/csbeno10/Kripto/foundation/blockchain/hasher"
	"github.com/csbeno10/Kripto/foundation/blockchain/merkle"
	"github.com/csbeno10/Kripto/foundation/blockchain/pow"
	"github.com/csbeno10/Kripto/foundation/blockchain/signature"
)

// ErrDependency is wrapped by errors coming from the key, signing or
// randomness backends. These are not retried.
var ErrDependency = errors.New("dependency failure")

// Config represents the settings required to construct blocks.
type Config struct {
	Hasher      hasher.Hasher
	Encoding    hasher.Encoding
	Target      pow.Target
	MaxAttempts uint64
	Workers     int
	Keys        signature.KeySource
	Now         func() uint64
	EvHandler   func(v string, args ...any)
}

// Factory constructs blocks.
type Factory struct {
	cfg    Config
	merkle merkle.Builder
}

// NewFactory constructs a factory, applying defaults for anything not set in
// the configuration: sha256, framed encoding, difficulty 4, a fresh ECDSA key
// per block and the system clock.
func NewFactory(cfg Config) (*Factory, error) {
	enc, err := hasher.ParseEncoding(string(cfg.Encoding))
	if err != nil {
		return nil, err
	}
	cfg.Encoding = enc

	if cfg.Target.Difficulty() == 0 {
		target, err := pow.NewTarget(pow.DefaultDifficulty)
		if err != nil {
			return nil, err
		}
		cfg.Target = target
	}

	if cfg.Keys == nil {
		cfg.Keys = signature.Ephemeral(signature.ECDSA{})
	}

	if cfg.Now == nil {
		cfg.Now = func() uint64 {
			return uint64(time.Now().UTC().Unix())
		}
	}

	if cfg.EvHandler == nil {
		cfg.EvHandler = func(v string, args ...any) {}
	}

	f := Factory{
		cfg:    cfg,
		merkle: merkleBuilder(cfg.Hasher, cfg.Encoding),
	}

	return &f, nil
}

// Rules returns the validation rules matching the blocks this factory builds.
func (f *Factory) Rules() Rules {
	return Rules{
		Hasher:   f.cfg.Hasher,
		Encoding: f.cfg.Encoding,
		Target:   f.cfg.Target,
	}
}

// Genesis constructs the first block of a chain. The genesis block has no
// predecessor and is not mined.
func (f *Factory) Genesis(ctx context.Context) (Block, error) {
	if err := ctx.Err(); err != nil {
		return Block{}, err
	}

	f.cfg.EvHandler("block: Genesis: started")
	defer f.cfg.EvHandler("block: Genesis: completed")

	nb := Block{
		Index:      0,
		PrevHash:   GenesisPrevHash,
		Timestamp:  f.cfg.Now(),
		MerkleRoot: "",
		Nonce:      0,
		Data:       []string{GenesisData},
	}
	nb.Hash = nb.CalculateHash(f.cfg.Hasher, f.cfg.Encoding)

	if err := f.sign(&nb); err != nil {
		return Block{}, err
	}

	f.cfg.EvHandler("block: Genesis: blk[%d]: hash[%s]", nb.Index, nb.Hash)

	return nb, nil
}

// Next constructs the block that follows prevBlock and commits to the
// transactions in data. It performs the proof of work and signs the result.
func (f *Factory) Next(ctx context.Context, prevBlock Block, data []string) (Block, error) {
	f.cfg.EvHandler("block: Next: prevBlk[%d]: started", prevBlock.Index)
	defer f.cfg.EvHandler("block: Next: prevBlk[%d]: completed", prevBlock.Index)

	// Take a copy so the caller can't change the batch after the block
	// has committed to it.
	data = slices.Clone(data)
	for _, tx := range data {
		f.cfg.EvHandler("block: Next: MINING: tx[%s]", tx)
	}

	nb := Block{
		Index:      prevBlock.Index + 1,
		PrevHash:   prevBlock.Hash,
		Timestamp:  f.cfg.Now(),
		MerkleRoot: f.merkle.Root(data),
		Data:       data,
	}

	// Get the key for this block before mining so a broken key backend
	// doesn't waste the work.
	key, err := f.cfg.Keys.Next()
	if err != nil {
		return Block{}, fmt.Errorf("%w: key source: %w", ErrDependency, err)
	}

	hashFn := nonceHasher(f.cfg.Hasher, f.cfg.Encoding, nb.Index, nb.PrevHash, nb.Timestamp, nb.MerkleRoot, nb.Data)

	searchCfg := pow.Config{
		Target:      f.cfg.Target,
		MaxAttempts: f.cfg.MaxAttempts,
		Workers:     f.cfg.Workers,
		EvHandler:   f.cfg.EvHandler,
	}

	sol, err := pow.Search(ctx, searchCfg, hashFn)
	if err != nil {
		return Block{}, fmt.Errorf("mining block %d: %w", nb.Index, err)
	}

	nb.Nonce = sol.Nonce
	nb.Hash = sol.Hash

	if err := f.signWith(&nb, key); err != nil {
		return Block{}, err
	}

	f.cfg.EvHandler("block: Next: blk[%d]: hash[%s]: nonce[%d]", nb.Index, nb.Hash, nb.Nonce)

	return nb, nil
}

// =============================================================================

// sign obtains a key and signs the block hash.
func (f *Factory) sign(b *Block) error {
	key, err := f.cfg.Keys.Next()
	if err != nil {
		return fmt.Errorf("%w: key source: %w", ErrDependency, err)
	}

	return f.signWith(b, key)
}

// signWith signs the block hash with the key. Only the public key is kept on
// the block, the private key is dropped once this returns.
func (f *Factory) signWith(b *Block, key signature.PrivateKey) error {
	sig, err := key.Sign([]byte(b.Hash))
	if err != nil {
		return fmt.Errorf("%w: sign block %d: %w", ErrDependency, b.Index, err)
	}

	b.Signature = sig
	b.PublicKey = key.PublicKey()
	b.Scheme = f.cfg.Keys.Scheme().Name()

	return nil
}

// merkleBuilder returns the merkle builder that matches the encoding.
func merkleBuilder(h hasher.Hasher, enc hasher.Encoding) merkle.Builder {
	if enc == hasher.EncodingLegacy {
		return merkle.NewBuilder(merkle.WithHasher(h), merkle.WithLegacyRoot())
	}
	return merkle.NewBuilder(merkle.WithHasher(h))
}
