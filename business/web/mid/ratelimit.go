package mid

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hlandauf/namecore/business/sys/metrics"
	"github.com/hlandauf/namecore/business/web/errs"
	"github.com/hlandauf/namecore/foundation/web"
	"golang.org/x/time/rate"
)

// visitorIdle is how long an unused limiter is kept.
const visitorIdle = 10 * time.Minute

// RateLimitConfig describes the per client budget.
type RateLimitConfig struct {
	RequestsPerMinute float64
	Burst             int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit rejects requests from a client once its budget is spent. Clients
// are identified by remote IP.
func RateLimit(cfg RateLimitConfig, m *metrics.Metrics) web.Middleware {
	perSecond := cfg.RequestsPerMinute / 60
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	var mu sync.Mutex
	visitors := make(map[string]*visitor)

	limiter := func(id string, now time.Time) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		for k, v := range visitors {
			if now.Sub(v.lastSeen) > visitorIdle {
				delete(visitors, k)
			}
		}

		v, exists := visitors[id]
		if !exists {
			v = &visitor{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
			visitors[id] = v
		}
		v.lastSeen = now

		return v.limiter
	}

	// This is the actual middleware function to be executed.
	mw := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if !limiter(clientID(r), time.Now()).Allow() {
				if m != nil {
					m.AddThrottle()
				}
				return errs.NewTrusted(errors.New("rate limit exceeded"), http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}

		return h
	}

	return mw
}

func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
