// Package chain maintains a single linear chain of blocks held in memory.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/csbeno10/Kripto/foundation/blockchain/block"
)

// Invariant names a rule every block in a valid chain must follow.
type Invariant = block.Invariant

// VerificationError is returned when a block in the chain breaks an invariant.
type VerificationError struct {
	Index     uint64
	Invariant Invariant
	Err       error
}

// Error implements the error interface.
func (ve *VerificationError) Error() string {
	return fmt.Sprintf("block %d: %s: %s", ve.Index, ve.Invariant, ve.Err)
}

// Unwrap returns the underlying error.
func (ve *VerificationError) Unwrap() error {
	return ve.Err
}

// =============================================================================

// Chain manages an ordered sequence of blocks. Blocks are only ever appended.
// Appends are serialized by appendMu so mining never holds mu, and readers
// are not blocked while the next block is searched for.
type Chain struct {
	appendMu  sync.Mutex
	mu        sync.RWMutex
	factory   *block.Factory
	rules     block.Rules
	evHandler func(v string, args ...any)
	blocks    []block.Block
}

// New constructs a chain holding a freshly built genesis block.
func New(ctx context.Context, factory *block.Factory, evHandler func(v string, args ...any)) (*Chain, error) {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	gen, err := factory.Genesis(ctx)
	if err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	c := Chain{
		factory:   factory,
		rules:     factory.Rules(),
		evHandler: evHandler,
		blocks:    []block.Block{gen},
	}

	return &c, nil
}

// Append mines the next block for the specified transactions and adds it to
// the end of the chain. Only one block is mined at a time.
func (c *Chain) Append(ctx context.Context, data []string) (block.Block, error) {
	c.appendMu.Lock()
	defer c.appendMu.Unlock()

	c.mu.RLock()
	latest := c.blocks[len(c.blocks)-1]
	c.mu.RUnlock()

	c.evHandler("chain: Append: prevBlk[%d]: mining next block: txs[%d]", latest.Index, len(data))

	nb, err := c.factory.Next(ctx, latest, data)
	if err != nil {
		return block.Block{}, err
	}

	c.mu.Lock()
	c.blocks = append(c.blocks, nb)
	c.mu.Unlock()

	c.evHandler("chain: Append: blk[%d]: appended: hash[%s]", nb.Index, nb.Hash)

	return nb.Clone(), nil
}

// Blocks returns a copy of every block in the chain.
func (c *Chain) Blocks() []block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blocks := make([]block.Block, len(c.blocks))
	for i, b := range c.blocks {
		blocks[i] = b.Clone()
	}

	return blocks
}

// Block returns a copy of the block at the specified index.
func (c *Chain) Block(index uint64) (block.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index >= uint64(len(c.blocks)) {
		return block.Block{}, false
	}

	return c.blocks[index].Clone(), true
}

// Latest returns a copy of the last block in the chain.
func (c *Chain) Latest() block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blocks[len(c.blocks)-1].Clone()
}

// Len returns the number of blocks in the chain.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.blocks)
}

// Rules returns the rules the chain is verified against.
func (c *Chain) Rules() block.Rules {
	return c.rules
}

// Verify walks the chain and stops at the first block that breaks an
// invariant. A nil error means the chain is valid.
func (c *Chain) Verify() error {
	var first error
	c.walk(c.evHandler, func(err *VerificationError) bool {
		first = err
		return false
	})

	return first
}

// VerifyAll walks the whole chain and returns every invariant failure found.
// Every block is checked against the block stored before it, so a single
// tampered block can be reported more than once.
func (c *Chain) VerifyAll() []*VerificationError {
	var failures []*VerificationError
	c.walk(c.evHandler, func(err *VerificationError) bool {
		failures = append(failures, err)
		return true
	})

	return failures
}

// Audit returns the same failures as VerifyAll without narrating each check
// through the event handler. It is meant for periodic checks such as metric
// scrapes.
func (c *Chain) Audit() []*VerificationError {
	var failures []*VerificationError
	c.walk(nil, func(err *VerificationError) bool {
		failures = append(failures, err)
		return true
	})

	return failures
}

// walk validates every block in order and calls fn for each failure. The walk
// stops when fn returns false. A nil evHandler walks silently.
func (c *Chain) walk(evHandler func(v string, args ...any), fn func(err *VerificationError) bool) {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	evHandler("chain: verify: started: blocks[%d]", len(c.blocks))
	defer evHandler("chain: verify: completed")

	var prevBlock *block.Block
	for i := range c.blocks {
		b := c.blocks[i]

		if err := block.Validate(b, prevBlock, c.rules, evHandler); err != nil {
			ve := VerificationError{
				Index: uint64(i),
				Err:   err,
			}

			var ie *block.InvariantError
			if errors.As(err, &ie) {
				ve.Invariant = ie.Invariant
				ve.Err = ie.Err
			}

			evHandler("chain: verify: blk[%d]: FAILED: %s", i, ve.Error())

			if !fn(&ve) {
				return
			}
		}

		prevBlock = &c.blocks[i]
	}
}
