package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/captainnews-gr/captainnews-harvester/internal/newscache"
)

type stubSnapshotter struct {
	payload []byte
	err     error
}

func (s stubSnapshotter) Latest(context.Context) ([]byte, error) {
	return s.payload, s.err
}

func serve(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewsServesPayload(t *testing.T) {
	body := []byte(`{"totalArticles":1}`)
	srv := New(":0", stubSnapshotter{payload: body}, nil, nil)

	rec := serve(t, srv, NewsPath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(body), rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
}

func TestNewsServesPayloadDespiteCacheWriteFailure(t *testing.T) {
	body := []byte(`{"totalArticles":2}`)
	err := fmt.Errorf("%w: disk full", newscache.ErrCacheWrite)
	srv := New(":0", stubSnapshotter{payload: body, err: err}, nil, nil)

	rec := serve(t, srv, NewsPath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(body), rec.Body.String())
}

func TestNewsUnavailable(t *testing.T) {
	srv := New(":0", stubSnapshotter{err: newscache.ErrEmptyResult}, nil, nil)

	rec := serve(t, srv, NewsPath)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"news temporarily unavailable"}`, rec.Body.String())

	srv = New(":0", stubSnapshotter{err: errors.New("boom")}, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, srv, NewsPath).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("captainnews_up 1\n"))
	})
	srv := New(":0", stubSnapshotter{}, metrics, nil)

	rec := serve(t, srv, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = serve(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "captainnews_up 1\n", rec.Body.String())

	withoutMetrics := New(":0", stubSnapshotter{}, nil, nil)
	assert.Equal(t, http.StatusNotFound, serve(t, withoutMetrics, "/metrics").Code)
}

func TestStartStopsOnCancel(t *testing.T) {
	srv := New("127.0.0.1:0", stubSnapshotter{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	cancel()
	require.NoError(t, <-done)
}
