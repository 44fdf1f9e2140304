package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/hlandauf/namecore/foundation/web"
	"github.com/stretchr/testify/require"
)

type body struct {
	Name string `json:"name"`
}

func (b body) Validate() error {
	if b.Name == "" {
		return web.NewShutdownError("name required")
	}
	return nil
}

func TestApp(t *testing.T) {
	shutdown := make(chan os.Signal, 1)

	var order []string
	mw := func(tag string) web.Middleware {
		return func(h web.Handler) web.Handler {
			return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				order = append(order, tag)
				return h(ctx, w, r)
			}
		}
	}

	app := web.NewApp(shutdown, mw("app"))

	app.Handle(http.MethodGet, "v1", "/names/show/:name", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		v, err := web.GetValues(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, v.TraceID)

		return web.Respond(ctx, w, body{Name: web.Param(r, "name")}, http.StatusOK)
	}, mw("route"))

	app.Handle(http.MethodPost, "v1", "/echo", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var b body
		if err := web.Decode(r, &b); err != nil {
			return err
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	})

	t.Run("param", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/names/show/example", nil))

		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"name":"example"}`, w.Body.String())
		require.Equal(t, []string{"app", "route"}, order)
	})

	t.Run("decode", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/echo", strings.NewReader(`{"name":"a"}`)))
		require.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("shutdown", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/echo", strings.NewReader(`{}`)))

		select {
		case <-shutdown:
		default:
			t.Fatal("expected a shutdown signal")
		}
	})
}
