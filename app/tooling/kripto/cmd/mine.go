package cmd

import (
	"fmt"

	"github.com/csbeno10/Kripto/business/core/ledger"
	"github.com/spf13/cobra"
)

func mineCmd(opts *options) *cobra.Command {
	var blocks int

	cmd := cobra.Command{
		Use:   "mine",
		Short: "Mine a chain of sample blocks and verify it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if blocks < 0 {
				return fmt.Errorf("blocks must not be negative, got %d", blocks)
			}

			ctx, cancel := opts.commandContext(cmd)
			defer cancel()

			l, err := ledger.New(ctx, opts.settings, opts.evHandler())
			if err != nil {
				return err
			}

			if _, err := l.MineSample(ctx, blocks); err != nil {
				return err
			}

			w := cmd.OutOrStdout()

			if err := renderChain(w, l.Chain().Blocks()); err != nil {
				return err
			}

			report := l.Verify()
			if err := renderReport(w, report); err != nil {
				return err
			}

			if !report.Valid {
				return fmt.Errorf("chain failed verification at %d places", len(report.Failures))
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&blocks, "blocks", "n", 3, "Number of blocks to mine after genesis.")

	return &cmd
}
