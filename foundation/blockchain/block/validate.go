package block

import (
	"errors"
	"fmt"

	"github.com/csbeno10/Kripto/foundation/blockchain/hasher"
	"github.com/csbeno10/Kripto/foundation/blockchain/pow"
	"github.com/csbeno10/Kripto/foundation/blockchain/signature"
)

// Invariant names a rule every block in a valid chain must follow.
type Invariant string

// Set of invariants checked by Validate, in the order they are checked.
const (
	InvariantGenesis     Invariant = "genesis"
	InvariantBlockNumber Invariant = "block-number"
	InvariantMerkleRoot  Invariant = "merkle-root"
	InvariantBlockHash   Invariant = "block-hash"
	InvariantProofOfWork Invariant = "proof-of-work"
	InvariantHashLink    Invariant = "hash-link"
	InvariantSignature   Invariant = "signature"
)

// InvariantError is returned by Validate when a block breaks an invariant.
type InvariantError struct {
	Invariant Invariant
	Err       error
}

// Error implements the error interface.
func (ie *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", ie.Invariant, ie.Err)
}

// Unwrap returns the underlying error.
func (ie *InvariantError) Unwrap() error {
	return ie.Err
}

func broken(inv Invariant, format string, args ...any) error {
	return &InvariantError{Invariant: inv, Err: fmt.Errorf(format, args...)}
}

// =============================================================================

// Rules represents the settings a chain was built with and that its blocks
// are validated against.
type Rules struct {
	Hasher   hasher.Hasher
	Encoding hasher.Encoding
	Target   pow.Target
}

// Validate takes a block and validates it against the previous block. A nil
// previous block means b must be a genesis block. The genesis block must
// carry the fixed label with an empty merkle root and a zero nonce, and is
// exempt from the merkle root, proof of work and hash link checks.
func Validate(b Block, prevBlock *Block, rules Rules, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	if prevBlock == nil {
		evHandler("block: Validate: blk[%d]: check: genesis block", b.Index)

		if b.Index != 0 || b.PrevHash != GenesisPrevHash {
			return broken(InvariantGenesis, "first block must have index 0 and previous hash %q, got %d and %q", GenesisPrevHash, b.Index, b.PrevHash)
		}

		if len(b.Data) != 1 || b.Data[0] != GenesisData {
			return broken(InvariantGenesis, "first block must carry the label %q, got %q", GenesisData, b.Data)
		}

		if b.MerkleRoot != "" || b.Nonce != 0 {
			return broken(InvariantGenesis, "first block is not mined and commits to no transactions, got merkle root %q and nonce %d", b.MerkleRoot, b.Nonce)
		}
	}

	if prevBlock != nil {
		evHandler("block: Validate: blk[%d]: check: block number is the next number", b.Index)

		nextNumber := prevBlock.Index + 1
		if b.Index != nextNumber {
			return broken(InvariantBlockNumber, "this block is not the next number, got %d, exp %d", b.Index, nextNumber)
		}

		evHandler("block: Validate: blk[%d]: check: merkle root does match transactions", b.Index)

		if err := merkleBuilder(rules.Hasher, rules.Encoding).Verify(b.Data, b.MerkleRoot); err != nil {
			return &InvariantError{Invariant: InvariantMerkleRoot, Err: err}
		}
	}

	evHandler("block: Validate: blk[%d]: check: block hash matches block fields", b.Index)

	if hash := b.CalculateHash(rules.Hasher, rules.Encoding); hash != b.Hash {
		return broken(InvariantBlockHash, "block hash doesn't match its fields, got %s, exp %s", b.Hash, hash)
	}

	if prevBlock != nil {
		evHandler("block: Validate: blk[%d]: check: block hash has been solved", b.Index)

		if !rules.Target.IsSolved(b.Hash) {
			return broken(InvariantProofOfWork, "%s invalid block hash, exp prefix %q", b.Hash, rules.Target.Prefix())
		}

		evHandler("block: Validate: blk[%d]: check: parent hash does match parent block", b.Index)

		if b.PrevHash != prevBlock.Hash {
			return broken(InvariantHashLink, "parent block hash doesn't match our known parent, got %s, exp %s", b.PrevHash, prevBlock.Hash)
		}

		if b.Timestamp < prevBlock.Timestamp {
			evHandler("block: Validate: blk[%d]: WARNING: block timestamp %d is before parent block %d", b.Index, b.Timestamp, prevBlock.Timestamp)
		}
	}

	evHandler("block: Validate: blk[%d]: check: signature is valid for the block hash", b.Index)

	scheme, err := signature.ParseScheme(b.Scheme)
	if err != nil {
		return &InvariantError{Invariant: InvariantSignature, Err: err}
	}

	if err := scheme.Verify(b.PublicKey, []byte(b.Hash), b.Signature); err != nil {
		return &InvariantError{Invariant: InvariantSignature, Err: err}
	}

	return nil
}

// InvariantOf returns the invariant broken by err, if any.
func InvariantOf(err error) (Invariant, bool) {
	var ie *InvariantError
	if !errors.As(err, &ie) {
		return "", false
	}
	return ie.Invariant, true
}
