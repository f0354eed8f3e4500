package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	slow := pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	tests := []struct {
		name     string
		checks   []Check
		wantCode int
		want     string
	}{
		{"no checks", nil, http.StatusOK, `"status":"OK"`},
		{"all up", []Check{{"postgres", ok}, {"redis", ok}}, http.StatusOK, `"postgres":"ok"`},
		{"one down", []Check{{"postgres", ok}, {"redis", down}}, http.StatusServiceUnavailable, `"redis":"down"`},
		{"timeout", []Check{{"postgres", slow}}, http.StatusServiceUnavailable, `"postgres":"down"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), 20*time.Millisecond, tt.checks...)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}
