package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hlandauf/namecore/business/sys/metrics"
	"github.com/hlandauf/namecore/foundation/blockchain/peer"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type chain struct{}

func (chain) RetrieveStatus() peer.PeerStatus {
	return peer.PeerStatus{LatestBlockNumber: 42, Names: 7, PendingCommitments: 3, MempoolLength: 1}
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	m.WatchChain(chain{})

	m.ObserveRequest("/v1/names/show/:name", http.StatusOK, time.Millisecond)
	m.AddError()
	m.AddPanic()
	m.AddThrottle()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "namecore_chain_height 42")
	require.Contains(t, string(body), "namecore_chain_names 7")
	require.Contains(t, string(body), `namecore_http_requests_total{route="/v1/names/show/:name",status="200"} 1`)

	n, err := testutil.GatherAndCount(m.Registry(), "namecore_http_throttles_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
