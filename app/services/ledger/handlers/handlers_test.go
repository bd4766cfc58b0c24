package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/csbeno10/Kripto/app/services/ledger/handlers"
	"github.com/csbeno10/Kripto/business/core/ledger"
	"github.com/csbeno10/Kripto/business/sys/metrics"
	"github.com/csbeno10/Kripto/foundation/blockchain/block"
	"github.com/csbeno10/Kripto/foundation/events"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type service struct {
	api   http.Handler
	debug http.Handler
}

func newService(t *testing.T) service {
	t.Helper()

	settings := ledger.DefaultSettings()
	settings.Difficulty = 2
	settings.Bits = 128

	reg := prometheus.NewRegistry()

	mining, err := metrics.NewMining(reg)
	if err != nil {
		t.Fatal(err)
	}

	web, err := metrics.NewHTTP(reg)
	if err != nil {
		t.Fatal(err)
	}

	l, err := ledger.New(context.Background(), settings, nil, ledger.WithMetrics(mining))
	if err != nil {
		t.Fatalf("Should be able to construct a ledger: %s", err)
	}
	reg.MustRegister(metrics.NewChainCollector(l.Chain()))

	log := zap.NewNop().Sugar()

	api := handlers.APIMux(handlers.APIMuxConfig{
		Log:        log,
		Ledger:     l,
		Evts:       events.New(),
		Metrics:    web,
		CorsOrigin: "*",
	})

	return service{
		api:   api,
		debug: handlers.DebugMux("test", log, l, reg),
	}
}

func (s service) do(t *testing.T, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}

	w := httptest.NewRecorder()
	s.api.ServeHTTP(w, r)

	return w
}

// =============================================================================

func Test_Blocks(t *testing.T) {
	s := newService(t)

	t.Log("Given the need to mine and read blocks over the API.")
	{
		w := s.do(t, http.MethodPost, "/v1/blocks", `{"transactions":["alice->bob:10","bob->carol:5"]}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("\t%s\tShould mine a block, got %d: %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould mine a block.", success)

		var nb block.Block
		if err := json.Unmarshal(w.Body.Bytes(), &nb); err != nil {
			t.Fatalf("\t%s\tShould decode the block: %v", failed, err)
		}

		if nb.Index != 1 || !strings.HasPrefix(nb.Hash, "00") || len(nb.Signature) != 65 {
			t.Fatalf("\t%s\tShould get a mined and signed block, got %+v.", failed, nb)
		}
		t.Logf("\t%s\tShould get a mined and signed block.", success)

		w = s.do(t, http.MethodGet, "/v1/blocks/1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould read the block back, got %d.", failed, w.Code)
		}

		var got block.Block
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || got.Hash != nb.Hash {
			t.Fatalf("\t%s\tShould read the same block back.", failed)
		}
		t.Logf("\t%s\tShould read the same block back.", success)

		w = s.do(t, http.MethodGet, "/v1/blocks", "")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total":2`) {
			t.Fatalf("\t%s\tShould list both blocks, got %s.", failed, w.Body.String())
		}
		t.Logf("\t%s\tShould list both blocks.", success)
	}
}

func Test_Errors(t *testing.T) {
	s := newService(t)

	type table struct {
		name   string
		method string
		path   string
		body   string
		status int
	}

	tt := []table{
		{"missing block", http.MethodGet, "/v1/blocks/9", "", http.StatusNotFound},
		{"bad index", http.MethodGet, "/v1/blocks/abc", "", http.StatusBadRequest},
		{"empty batch", http.MethodPost, "/v1/blocks", `{"transactions":[]}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/blocks", `{"txs":["a"]}`, http.StatusBadRequest},
		{"bad rounds", http.MethodPost, "/v1/proof", `{"rounds":-1}`, http.StatusBadRequest},
	}

	t.Log("Given the need to report bad requests.")
	{
		for testID, tst := range tt {
			w := s.do(t, tst.method, tst.path, tst.body)
			if w.Code != tst.status {
				t.Fatalf("\t%s\tTest %d:\tShould get %d for a %s, got %d: %s", failed, testID, tst.status, tst.name, w.Code, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould get %d for a %s.", success, testID, tst.status, tst.name)
		}
	}
}

func Test_VerifyAndProof(t *testing.T) {
	s := newService(t)

	w := s.do(t, http.MethodGet, "/v1/verify", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Should verify, got %d.", w.Code)
	}

	var report ledger.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil || !report.Valid || report.Blocks != 1 {
		t.Fatalf("Should report a valid chain, got %s.", w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/v1/proof", `{"rounds":4}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Should run a proof, got %d: %s", w.Code, w.Body.String())
	}

	var proof struct {
		Rounds int  `json:"rounds"`
		Passed bool `json:"passed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &proof); err != nil || !proof.Passed || proof.Rounds != 4 {
		t.Fatalf("Should pass the proof, got %s.", w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/v1/proof", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Should run a proof with the default rounds, got %d: %s", w.Code, w.Body.String())
	}
}

func Test_Debug(t *testing.T) {
	s := newService(t)

	s.do(t, http.MethodGet, "/v1/status", "")

	for _, path := range []string{"/debug/readiness", "/debug/liveness"} {
		w := httptest.NewRecorder()
		s.debug.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Should get a 200 from %s, got %d.", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	s.debug.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	for _, name := range []string{"kripto_chain_height 1", `kripto_http_requests_total{code="200"} 1`} {
		if !strings.Contains(w.Body.String(), name) {
			t.Fatalf("Should expose %q, got:\n%s", name, w.Body.String())
		}
	}
}
