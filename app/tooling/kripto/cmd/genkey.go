package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/csbeno10/Kripto/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

func genkeyCmd() *cobra.Command {
	var out string

	cmd := cobra.Command{
		Use:   "genkey",
		Short: "Generate a signing key file usable with --key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o700); err != nil {
					return fmt.Errorf("create key directory: %w", err)
				}
			}

			address, err := signature.GenerateKeyFile(out)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "key written to %s\naddress %s\n", out, address)

			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "zblock/keys/miner.ecdsa", "Path of the key file to write.")

	return &cmd
}
