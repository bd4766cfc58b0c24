// Package merkle provides the merkle root calculation used to commit a block
// to its batch of transactions.
package merkle

import (
	"errors"
	"fmt"

	"github.com/csbeno10/Kripto/foundation/blockchain/hasher"
)

// ErrRootMismatch is returned when a recomputed root doesn't match the
// expected root.
var ErrRootMismatch = errors.New("merkle root does not match transactions")

// =============================================================================

// Builder folds an ordered set of values into a single root digest. The tree
// itself is never kept, only the root is returned.
type Builder struct {
	hasher hasher.Hasher
	legacy bool
}

// WithHasher is used to change the default hash strategy of using sha256
// when constructing a new builder.
func WithHasher(h hasher.Hasher) func(b *Builder) {
	return func(b *Builder) {
		b.hasher = h
	}
}

// WithLegacyRoot makes the builder digest the final reduced value one more
// time for batches of two or more values. Roots produced by the earlier
// ledger were computed this way.
func WithLegacyRoot() func(b *Builder) {
	return func(b *Builder) {
		b.legacy = true
	}
}

// NewBuilder constructs a builder with the specified options applied.
func NewBuilder(options ...func(b *Builder)) Builder {
	b := Builder{
		hasher: hasher.Default(),
	}

	for _, option := range options {
		option(&b)
	}

	return b
}

// Root is a convenience function that constructs a builder and returns the
// root for the values.
func Root(values []string, options ...func(b *Builder)) string {
	return NewBuilder(options...).Root(values)
}

// Root returns the hex encoded root digest for the values. An empty set of
// values has no commitment and returns an empty string.
//
// Pairing is positional and left to right. Each pair is combined by digesting
// the concatenation of both values. When a level has an odd number of values,
// the leftover value is digested alone and carried to the next level. The
// reduction repeats until a single digest remains.
//
//	[a b c]  ->  [H(a+b) H(c)]  ->  [H(H(a+b)+H(c))]
func (b Builder) Root(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return b.hasher.DigestString(values[0])
	}

	level := values
	for {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, b.hasher.DigestString(level[i]))
				continue
			}
			next = append(next, b.hasher.DigestString(level[i]+level[i+1]))
		}

		if len(next) == 1 {
			if b.legacy {
				return b.hasher.DigestString(next[0])
			}
			return next[0]
		}

		level = next
	}
}

// Verify recomputes the root for the values and checks it against the
// specified root.
func (b Builder) Verify(values []string, root string) error {
	calculated := b.Root(values)
	if calculated != root {
		return fmt.Errorf("%w, got %q, exp %q", ErrRootMismatch, calculated, root)
	}

	return nil
}
