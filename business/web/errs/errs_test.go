package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/csbeno10/Kripto/business/web/errs"
)

func Test_Trusted(t *testing.T) {
	base := errors.New("block 9 not found")
	err := fmt.Errorf("query: %w", errs.NotFound(base))

	if !errs.IsTrusted(err) {
		t.Fatal("Should find the trusted error through wrapping.")
	}

	te := errs.GetTrusted(err)
	if te.Status != http.StatusNotFound || te.Error() != base.Error() {
		t.Fatalf("Should keep the status and message, got %d %q.", te.Status, te.Error())
	}

	if !errors.Is(err, base) {
		t.Fatal("Should unwrap to the base error.")
	}

	if errs.GetTrusted(base) != nil {
		t.Fatal("Should not find a trusted error in a plain error.")
	}
}
