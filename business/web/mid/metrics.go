package mid

import (
	"context"
	"net/http"
	"time"

	"github.com/hlandauf/namecore/business/sys/metrics"
	"github.com/hlandauf/namecore/foundation/web"
)

// Metrics updates program counters.
func Metrics(m *metrics.Metrics, route string) web.Middleware {

	// This is the actual middleware function to be executed.
	mw := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			status := http.StatusInternalServerError
			since := time.Duration(0)
			if v, verr := web.GetValues(ctx); verr == nil {
				status = v.StatusCode
				since = time.Since(v.Now)
			}
			m.ObserveRequest(route, status, since)

			// Increment the errors counter if an error occurred on this request.
			if err != nil {
				m.AddError()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return mw
}
