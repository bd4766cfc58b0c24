package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/csbeno10/Kripto/business/core/ledger"
	"github.com/spf13/cobra"
)

func proveCmd(opts *options) *cobra.Command {
	var transcript bool

	cmd := cobra.Command{
		Use:   "prove",
		Short: "Run a Fiat-Shamir identity proof with freshly generated values",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.commandContext(cmd)
			defer cancel()

			l, err := ledger.New(ctx, opts.settings, opts.evHandler())
			if err != nil {
				return err
			}

			p, err := l.Prove(ctx, opts.settings.Rounds)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()

			if transcript {
				data, err := json.MarshalIndent(p, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(w, string(data))
			}

			if err := renderProof(w, p); err != nil {
				return err
			}

			if !p.Passed {
				return fmt.Errorf("identity proof failed at round %d", *p.FailedRound)
			}

			return nil
		},
	}

	s := &opts.settings
	cmd.Flags().IntVarP(&s.Rounds, "rounds", "r", s.Rounds, "Number of proof rounds.")
	cmd.Flags().IntVar(&s.Bits, "bits", s.Bits, "Size of the modulus in bits.")
	cmd.Flags().BoolVar(&transcript, "transcript", false, "Print the proof transcript as JSON.")

	return &cmd
}
