// Package block provides the block type and the factory that assembles, mines
// and signs new blocks.
package block

import (
	"slices"

	"github.com/csbeno10/Kripto/foundation/blockchain/hasher"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// GenesisPrevHash is the previous hash recorded by the genesis block, which
// has no predecessor.
const GenesisPrevHash = "0"

// GenesisData is the fixed label the genesis block commits to.
const GenesisData = "Genesis Block"

// =============================================================================

// Block represents a batch of transactions committed to the chain. A block is
// fully populated by the Factory and never changed after that.
type Block struct {
	Index      uint64        `json:"index"`       // Position in the chain, 0 for genesis.
	PrevHash   string        `json:"prev_hash"`   // Hash of the previous block in the chain.
	Timestamp  uint64        `json:"timestamp"`   // Time the block was mined in seconds since epoch.
	MerkleRoot string        `json:"merkle_root"` // Merkle root of Data, empty for an empty batch.
	Nonce      uint64        `json:"nonce"`       // Value identified to solve the hash solution.
	Data       []string      `json:"data"`        // Transactions committed to by this block.
	Hash       string        `json:"hash"`        // Hash of all the fields above.
	Signature  hexutil.Bytes `json:"signature"`   // Signature over Hash.
	PublicKey  hexutil.Bytes `json:"public_key"`  // Key that verifies Signature.
	Scheme     string        `json:"scheme"`      // Name of the signature scheme.
}

// IsGenesis reports whether this is the first block of a chain.
func (b Block) IsGenesis() bool {
	return b.Index == 0
}

// Clone returns a copy of the block that shares no memory with the original.
func (b Block) Clone() Block {
	b.Data = slices.Clone(b.Data)
	b.Signature = slices.Clone(b.Signature)
	b.PublicKey = slices.Clone(b.PublicKey)
	return b
}

// CalculateHash recomputes the hash of the block from its fields.
func (b Block) CalculateHash(h hasher.Hasher, enc hasher.Encoding) string {
	return CalculateHash(h, enc, b.Index, b.PrevHash, b.Timestamp, b.MerkleRoot, b.Nonce, b.Data)
}

// CalculateHash returns the hash for the specified block fields. The fields
// are encoded in a fixed order.
func CalculateHash(h hasher.Hasher, enc hasher.Encoding, index uint64, prevHash string, timestamp uint64, merkleRoot string, nonce uint64, data []string) string {
	return h.Fields(enc,
		hasher.Uint(index),
		hasher.Text(prevHash),
		hasher.Uint(timestamp),
		hasher.Text(merkleRoot),
		hasher.Uint(nonce),
		hasher.List(data),
	)
}

// nonceHasher returns a function that computes the block hash for a nonce.
// Both encodings are a plain concatenation of the encoded fields, so the
// fields around the nonce are encoded once up front.
func nonceHasher(h hasher.Hasher, enc hasher.Encoding, index uint64, prevHash string, timestamp uint64, merkleRoot string, data []string) func(nonce uint64) string {
	prefix := enc.Encode(hasher.Uint(index), hasher.Text(prevHash), hasher.Uint(timestamp), hasher.Text(merkleRoot))
	suffix := enc.Encode(hasher.List(data))

	return func(nonce uint64) string {
		buf := make([]byte, 0, len(prefix)+len(suffix)+32)
		buf = append(buf, prefix...)
		buf = append(buf, enc.Encode(hasher.Uint(nonce))...)
		buf = append(buf, suffix...)
		return h.Digest(buf)
	}
}
