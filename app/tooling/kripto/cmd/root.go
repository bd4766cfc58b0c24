// Package cmd contains the commands of the kripto tool.
package cmd

import (
	"context"
	"time"

	"github.com/csbeno10/Kripto/business/core/ledger"
	"github.com/csbeno10/Kripto/foundation/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// options holds the flags shared by every command.
type options struct {
	settings ledger.Settings
	timeout  time.Duration
	verbose  bool
	log      *zap.SugaredLogger
}

// NewRoot constructs the kripto command with all its sub commands.
func NewRoot(build string, log *zap.SugaredLogger) *cobra.Command {
	opts := options{
		settings: ledger.DefaultSettings(),
		log:      log,
	}

	root := cobra.Command{
		Use:          "kripto",
		Short:        "Mine, verify and prove on a local Kripto ledger",
		Version:      build,
		SilenceUsage: true,
	}

	s := &opts.settings
	flags := root.PersistentFlags()
	flags.IntVarP(&s.Difficulty, "difficulty", "d", s.Difficulty, "Number of leading zero hex characters a block hash needs.")
	flags.StringVar(&s.Hash, "hash", s.Hash, "Hash strategy: sha256, keccak256 or blake3.")
	flags.StringVar(&s.Encoding, "encoding", s.Encoding, "Block field encoding: framed or legacy.")
	flags.StringVar(&s.Signer, "signer", s.Signer, "Signature scheme: ecdsa or schnorr.")
	flags.StringVarP(&s.KeyFile, "key", "k", s.KeyFile, "Key file to sign every block with. A fresh key is used per block when empty.")
	flags.IntVarP(&s.Workers, "workers", "w", s.Workers, "Number of goroutines searching for a nonce.")
	flags.Uint64Var(&s.MaxAttempts, "max-attempts", s.MaxAttempts, "Maximum nonce attempts per block, 0 means no limit.")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Time allowed for the whole command, 0 means no limit.")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log the mining and proof narration.")

	root.AddCommand(
		mineCmd(&opts),
		proveCmd(&opts),
		merkleCmd(&opts),
		genkeyCmd(),
	)

	return &root
}

// commandContext returns the context for a command, bounded by --timeout.
func (o *options) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return context.WithCancel(ctx)
}

// evHandler returns the narration handler for the ledger.
func (o *options) evHandler() func(v string, args ...any) {
	if !o.verbose || o.log == nil {
		return nil
	}
	return logger.EvHandler(o.log, uuid.NewString())
}
