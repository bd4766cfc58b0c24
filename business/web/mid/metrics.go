package mid

import (
	"context"
	"net/http"

	"github.com/csbeno10/Kripto/business/sys/metrics"
	"github.com/csbeno10/Kripto/foundation/web"
)

// Metrics counts every request by the status code that was sent back.
func Metrics(m *metrics.HTTP) web.Middleware {
	mw := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)

			if v, verr := web.GetValues(ctx); verr == nil {
				m.Request(v.StatusCode)
			}

			return err
		}

		return h
	}

	return mw
}
