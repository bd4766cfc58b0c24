package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/csbeno10/Kripto/business/core/ledger"
	"github.com/csbeno10/Kripto/foundation/blockchain/block"
	"github.com/pterm/pterm"
)

// short trims a digest for display.
func short(s string) string {
	const n = 16
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// renderChain writes one table row per block.
func renderChain(w io.Writer, blocks []block.Block) error {
	data := pterm.TableData{
		{"Index", "Hash", "Previous", "Merkle Root", "Nonce", "Txs", "Signer"},
	}

	for _, b := range blocks {
		data = append(data, []string{
			strconv.FormatUint(b.Index, 10),
			short(b.Hash),
			short(b.PrevHash),
			short(b.MerkleRoot),
			strconv.FormatUint(b.Nonce, 10),
			strconv.Itoa(len(b.Data)),
			b.Scheme,
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render chain: %w", err)
	}

	_, err = fmt.Fprintln(w, table)
	return err
}

// renderReport writes the verification outcome and every failure found.
func renderReport(w io.Writer, r ledger.Report) error {
	if r.Valid {
		_, err := fmt.Fprintln(w, pterm.DefaultBox.WithTitle("Verification").Sprint(pterm.Green(fmt.Sprintf("VALID: %d blocks", r.Blocks))))
		return err
	}

	data := pterm.TableData{
		{"Index", "Invariant", "Error"},
	}
	for _, f := range r.Failures {
		data = append(data, []string{strconv.FormatUint(f.Index, 10), f.Invariant, f.Error})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	title := pterm.Red(fmt.Sprintf("INVALID: %d failures in %d blocks", len(r.Failures), r.Blocks))
	_, err = fmt.Fprintln(w, pterm.DefaultBox.WithTitle("Verification").Sprint(title+"\n"+table))
	return err
}

// renderProof writes the outcome of an identity proof.
func renderProof(w io.Writer, p ledger.Proof) error {
	var b strings.Builder

	fmt.Fprintf(&b, "modulus bits: %d\n", p.Params.N.BitLen())
	fmt.Fprintf(&b, "rounds:       %d\n", p.Rounds)

	switch {
	case p.Passed:
		b.WriteString(pterm.Green("PASSED: every round verified"))
	case p.FailedRound != nil:
		b.WriteString(pterm.Red(fmt.Sprintf("FAILED: round %d did not verify", *p.FailedRound)))
	default:
		b.WriteString(pterm.Red("FAILED"))
	}

	_, err := fmt.Fprintln(w, pterm.DefaultBox.WithTitle("Identity Proof").Sprint(b.String()))
	return err
}
