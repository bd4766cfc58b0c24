package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/csbeno10/Kripto/business/core/ledger"
	"github.com/csbeno10/Kripto/business/sys/metrics"
	"github.com/csbeno10/Kripto/business/sys/validate"
	"github.com/csbeno10/Kripto/foundation/blockchain/pow"
	"github.com/csbeno10/Kripto/foundation/blockchain/signature"
	"github.com/csbeno10/Kripto/foundation/identity"
	"github.com/prometheus/client_golang/prometheus"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func settings(options ...func(s *ledger.Settings)) ledger.Settings {
	s := ledger.DefaultSettings()
	s.Difficulty = 2
	s.Bits = 128
	for _, option := range options {
		option(&s)
	}
	return s
}

// =============================================================================

func Test_Settings(t *testing.T) {
	type table struct {
		name   string
		mutate func(s *ledger.Settings)
		field  string
	}

	tt := []table{
		{"difficulty zero", func(s *ledger.Settings) { s.Difficulty = 0 }, "difficulty"},
		{"difficulty too big", func(s *ledger.Settings) { s.Difficulty = 65 }, "difficulty"},
		{"hash", func(s *ledger.Settings) { s.Hash = "md5" }, "hash"},
		{"encoding", func(s *ledger.Settings) { s.Encoding = "json" }, "encoding"},
		{"signer", func(s *ledger.Settings) { s.Signer = "rsa" }, "signer"},
		{"rounds", func(s *ledger.Settings) { s.Rounds = 0 }, "rounds"},
		{"bits", func(s *ledger.Settings) { s.Bits = 8 }, "bits"},
	}

	t.Log("Given the need to reject bad settings before any work begins.")
	{
		if err := ledger.DefaultSettings().Validate(); err != nil {
			t.Fatalf("\t%s\tShould accept the default settings: %v", failed, err)
		}
		t.Logf("\t%s\tShould accept the default settings.", success)

		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a bad %s.", testID, tst.name)
			{
				_, err := ledger.New(context.Background(), settings(tst.mutate), nil)
				if !ledger.IsConfigError(err) {
					t.Fatalf("\t%s\tTest %d:\tShould get a config error, got %v.", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould get a config error.", success, testID)

				if _, exists := validate.GetFieldErrors(err).Fields()[tst.field]; !exists {
					t.Fatalf("\t%s\tTest %d:\tShould name the %s field, got %v.", failed, testID, tst.field, err)
				}
				t.Logf("\t%s\tTest %d:\tShould name the %s field.", success, testID, tst.field)
			}
		}

		_, err := ledger.New(context.Background(), settings(func(s *ledger.Settings) { s.KeyFile = "does/not/exist.ecdsa" }), nil)
		if !ledger.IsConfigError(err) {
			t.Fatalf("\t%s\tShould get a config error for a missing key file, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould get a config error for a missing key file.", success)
	}
}

func Test_Mine(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewMining(reg)
	if err != nil {
		t.Fatal(err)
	}

	var events []string
	ev := func(v string, args ...any) { events = append(events, v) }

	t.Log("Given the need to mine a ledger.")
	{
		l, err := ledger.New(context.Background(), settings(), ev, ledger.WithMetrics(m), ledger.WithClock(func() uint64 { return 42 }))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a ledger: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to construct a ledger.", success)

		blocks, err := l.MineSample(context.Background(), 3)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine sample blocks: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine sample blocks.", success)

		if len(blocks) != 3 || l.Chain().Len() != 4 {
			t.Fatalf("\t%s\tShould have genesis plus 3 blocks, got %d.", failed, l.Chain().Len())
		}
		t.Logf("\t%s\tShould have genesis plus 3 blocks.", success)

		for _, b := range blocks {
			if !strings.HasPrefix(b.Hash, "00") || b.Timestamp != 42 {
				t.Fatalf("\t%s\tShould mine with the configured difficulty and clock, got %s %d.", failed, b.Hash, b.Timestamp)
			}
		}
		t.Logf("\t%s\tShould mine with the configured difficulty and clock.", success)

		report := l.Verify()
		if !report.Valid || report.Blocks != 4 || len(report.Failures) != 0 {
			t.Fatalf("\t%s\tShould verify, got %+v.", failed, report)
		}
		t.Logf("\t%s\tShould verify.", success)

		if len(events) == 0 {
			t.Fatalf("\t%s\tShould narrate through the event handler.", failed)
		}
		t.Logf("\t%s\tShould narrate through the event handler.", success)
	}
}

func Test_Configurations(t *testing.T) {
	tt := []ledger.Settings{
		settings(func(s *ledger.Settings) { s.Hash = "keccak256"; s.Signer = "schnorr" }),
		settings(func(s *ledger.Settings) { s.Hash = "blake3"; s.Workers = 4 }),
		settings(func(s *ledger.Settings) { s.Encoding = "legacy" }),
	}

	for i, s := range tt {
		l, err := ledger.New(context.Background(), s, nil)
		if err != nil {
			t.Fatalf("[%d] Should be able to construct a ledger: %s", i, err)
		}

		if _, err := l.MineSample(context.Background(), 2); err != nil {
			t.Fatalf("[%d] Should be able to mine: %s", i, err)
		}

		if report := l.Verify(); !report.Valid {
			t.Fatalf("[%d] Should verify, got %+v.", i, report)
		}

		latest := l.Chain().Latest()
		if latest.Scheme != s.Signer {
			t.Fatalf("[%d] Should sign with %s, got %s.", i, s.Signer, latest.Scheme)
		}
	}
}

func Test_KeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miner.ecdsa")
	if _, err := signature.GenerateKeyFile(path); err != nil {
		t.Fatalf("Should be able to write a key file: %s", err)
	}

	l, err := ledger.New(context.Background(), settings(func(s *ledger.Settings) { s.KeyFile = path }), nil)
	if err != nil {
		t.Fatalf("Should be able to construct a ledger: %s", err)
	}

	if _, err := l.MineSample(context.Background(), 2); err != nil {
		t.Fatalf("Should be able to mine: %s", err)
	}

	blocks := l.Chain().Blocks()
	for _, b := range blocks[1:] {
		if string(b.PublicKey) != string(blocks[0].PublicKey) {
			t.Fatal("Should sign every block with the key from the file.")
		}
	}
}

func Test_MiningTimeout(t *testing.T) {
	l, err := ledger.New(context.Background(), settings(func(s *ledger.Settings) { s.Difficulty = 64; s.MaxAttempts = 10 }), nil)
	if err != nil {
		t.Fatalf("Should be able to construct a ledger: %s", err)
	}

	if _, err := l.Mine(context.Background(), []string{"tx"}); !errors.Is(err, pow.ErrMiningTimeout) {
		t.Fatalf("Should get ErrMiningTimeout, got %v.", err)
	}

	if l.Chain().Len() != 1 {
		t.Fatalf("Should not append a block on failure, got %d blocks.", l.Chain().Len())
	}
}

func Test_Prove(t *testing.T) {
	l, err := ledger.New(context.Background(), settings(), nil)
	if err != nil {
		t.Fatalf("Should be able to construct a ledger: %s", err)
	}

	t.Log("Given the need to run identity proofs.")
	{
		p, err := l.Prove(context.Background(), 0)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to run a proof: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to run a proof.", success)

		if !p.Passed || p.Rounds != identity.DefaultRounds || len(p.Transcript.Rounds) != p.Rounds {
			t.Fatalf("\t%s\tShould pass every configured round, got %+v.", failed, p)
		}
		t.Logf("\t%s\tShould pass every configured round.", success)

		if _, err := l.Prove(context.Background(), -1); !ledger.IsConfigError(err) || !errors.Is(err, identity.ErrInvalidRounds) {
			t.Fatalf("\t%s\tShould reject a negative round count, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould reject a negative round count.", success)

		params, secret, err := identity.Setup(nil, 128)
		if err != nil {
			t.Fatal(err)
		}

		prover := identity.NewHonestProver(params, secret, nil)
		if err := l.Interactive(context.Background(), prover, params, 5); err != nil {
			t.Fatalf("\t%s\tShould pass an interactive proof: %v", failed, err)
		}
		t.Logf("\t%s\tShould pass an interactive proof.", success)
	}
}
