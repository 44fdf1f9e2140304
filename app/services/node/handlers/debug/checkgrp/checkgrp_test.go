package checkgrp_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hlandauf/namecore/app/services/node/handlers/debug/checkgrp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type node bool

func (n node) IsMiningAllowed() bool { return bool(n) }

func TestReadiness(t *testing.T) {
	tests := []struct {
		name   string
		node   checkgrp.Readier
		code   int
		status string
	}{
		{name: "no node", node: nil, code: http.StatusOK, status: "ok"},
		{name: "mining", node: node(true), code: http.StatusOK, status: "ok"},
		{name: "resyncing", node: node(false), code: http.StatusServiceUnavailable, status: "resyncing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := checkgrp.Handlers{Build: "test", Log: zap.NewNop().Sugar(), Node: tt.node}

			w := httptest.NewRecorder()
			h.Readiness(w, httptest.NewRequest(http.MethodGet, "/debug/readiness", nil))

			assert.Equal(t, tt.code, w.Code)

			var got struct {
				Status string `json:"status"`
			}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
			assert.Equal(t, tt.status, got.Status)
		})
	}
}

func TestLiveness(t *testing.T) {
	h := checkgrp.Handlers{Build: "v1.2.3", Log: zap.NewNop().Sugar()}

	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, "/debug/liveness", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "up", got["status"])
	assert.Equal(t, "v1.2.3", got["build"])
}
