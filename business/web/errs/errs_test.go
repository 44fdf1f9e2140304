package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/hlandauf/namecore/business/web/errs"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/stretchr/testify/require"
)

func TestStatusForKind(t *testing.T) {
	tt := map[names.ErrorKind]int{
		names.KindLength:          http.StatusBadRequest,
		names.KindCollision:       http.StatusConflict,
		names.KindNotFound:        http.StatusNotFound,
		names.KindImmature:        http.StatusUnprocessableEntity,
		names.KindNameActive:      http.StatusConflict,
		names.KindExpired:         http.StatusUnprocessableEntity,
		names.KindWrongOwner:      http.StatusForbidden,
		names.KindPendingConflict: http.StatusConflict,
	}

	for kind, status := range tt {
		require.Equal(t, status, errs.StatusForKind(kind), kind.String())
	}
}

func TestTrusted(t *testing.T) {
	inner := names.Errorf(names.KindExpired, "gone")
	err := fmt.Errorf("wrapped: %w", errs.NewTrusted(inner, http.StatusTeapot))

	require.True(t, errs.IsTrusted(err))
	require.Equal(t, http.StatusTeapot, errs.GetTrusted(err).Status)
	require.True(t, errors.Is(err, names.ErrExpired))
	require.Nil(t, errs.GetTrusted(errors.New("plain")))
}
