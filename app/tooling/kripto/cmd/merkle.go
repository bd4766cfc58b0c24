package cmd

import (
	"fmt"

	"github.com/csbeno10/Kripto/business/core/ledger"
	"github.com/csbeno10/Kripto/foundation/blockchain/hasher"
	"github.com/csbeno10/Kripto/foundation/blockchain/merkle"
	"github.com/spf13/cobra"
)

func merkleCmd(opts *options) *cobra.Command {
	cmd := cobra.Command{
		Use:   "merkle [transaction...]",
		Short: "Print the merkle root of the transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.settings.Validate(); err != nil {
				return err
			}

			h, err := hasher.New(hasher.Strategy(opts.settings.Hash))
			if err != nil {
				return &ledger.ConfigError{Err: err}
			}

			options := []func(b *merkle.Builder){merkle.WithHasher(h)}
			if hasher.Encoding(opts.settings.Encoding) == hasher.EncodingLegacy {
				options = append(options, merkle.WithLegacyRoot())
			}

			root := merkle.Root(args, options...)
			if root == "" {
				root = "(empty)"
			}

			fmt.Fprintln(cmd.OutOrStdout(), root)

			return nil
		},
	}

	return &cmd
}
