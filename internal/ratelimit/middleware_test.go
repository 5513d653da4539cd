package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedLimiter struct {
	allowed bool
	err     error
	gotKey  string
}

func (s *scriptedLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.gotKey = key
	return s.allowed, s.err
}

func (s *scriptedLimiter) Close() error { return nil }

func serveThrough(t *testing.T, limiter Limiter, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := Middleware(limiter, IPKeyFunc, nil, logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/recommend", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareAllows(t *testing.T) {
	lim := &scriptedLimiter{allowed: true}
	rec := serveThrough(t, lim, "10.0.0.7:51234")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10.0.0.7", lim.gotKey)
}

func TestMiddlewareRejectsWithErrorBody(t *testing.T) {
	rec := serveThrough(t, &scriptedLimiter{allowed: false}, "10.0.0.7:51234")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t,
		`{"error":{"code":"RATE_LIMITED","message":"too many requests"}}`,
		rec.Body.String(),
	)
}

func TestMiddlewareFailsOpen(t *testing.T) {
	lim := &scriptedLimiter{allowed: false, err: errors.New("limiter down")}
	rec := serveThrough(t, lim, "10.0.0.7:51234")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareNilLimiterPassesThrough(t *testing.T) {
	rec := serveThrough(t, nil, "10.0.0.7:51234")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPKeyFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.RemoteAddr = "192.168.1.5:8080"
	assert.Equal(t, "192.168.1.5", IPKeyFunc(req))

	// Forwarded headers are deliberately ignored.
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, "192.168.1.5", IPKeyFunc(req))

	req.RemoteAddr = "[::1]:9000"
	assert.Equal(t, "[::1]", IPKeyFunc(req))
}
