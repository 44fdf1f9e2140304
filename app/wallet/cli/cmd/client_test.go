package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallet = names.Address("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")

func newNode(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/accounts/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(accountInfo{Address: wallet, Nonce: 4})
	})

	mux.HandleFunc("/v1/names/pending", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]state.PendingOp{
			{From: wallet, Nonce: 5},
			{From: wallet, Nonce: 6},
			{From: "0x0000000000000000000000000000000000000001", Nonce: 9},
		})
	})

	mux.HandleFunc("/v1/names/show/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"error": "name not found", "code": 3, "kind": "NotFoundError"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestNextNonce(t *testing.T) {
	srv := newNode(t)

	nonce, err := newClient(srv.URL).nextNonce(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce, "pending nonces from the wallet must be skipped")
}

func TestErrorResponse(t *testing.T) {
	srv := newNode(t)

	var info nameInfo
	err := newClient(srv.URL).get(context.Background(), namePath("/v1/names/show/", "d/example"), &info)
	require.Error(t, err)

	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NotFoundError", apiErr.Kind)
	assert.Equal(t, "name not found", apiErr.Msg)
}

func TestNamePath(t *testing.T) {
	assert.Equal(t, "/v1/names/show/d/example", namePath("/v1/names/show/", "d/example"))
	assert.Equal(t, "/v1/names/show/id/a%20b", namePath("/v1/names/show/", "id/a b"))
}

func TestNewSalt(t *testing.T) {
	a, err := newSalt()
	require.NoError(t, err)
	b, err := newSalt()
	require.NoError(t, err)

	assert.Len(t, a, names.MaxSaltLength)
	assert.NotEqual(t, a, b)
}
