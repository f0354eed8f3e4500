package gate

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Classify(t *testing.T) {
	table := MustTable(DefaultRoutes())

	tests := []struct {
		method string
		path   string
		want   Access
	}{
		{http.MethodPost, "/api/auth/login", AccessPublic},
		{http.MethodPost, "/api/auth/register", AccessPublic},
		{http.MethodGet, "/api/auth/me", AccessExempt},
		{http.MethodGet, "/api/payments/intent/pi_123/status", AccessExempt},
		{http.MethodPost, "/api/payments/webhook", AccessPublic},
		{http.MethodGet, "/api/subscriptions/active", AccessExempt},
		{http.MethodPost, "/api/subscriptions/sub-1/cancel", AccessGated},
		{http.MethodPost, "/api/transfer", AccessGated},
		{http.MethodGet, "/api/admin/users", AccessAdmin},
		{http.MethodPut, "/api/admin/users/u-1/role", AccessAdmin},
		{http.MethodGet, "/", AccessPublic},
		{http.MethodHead, "/pricing", AccessPublic},
		{http.MethodGet, "/dashboard", AccessGated},
		{http.MethodGet, "/api/auth/me/", AccessExempt},

		// Совпадение только по целым сегментам: соседние и вложенные пути не наследуют класс.
		{http.MethodPost, "/api/auth/login/extra", AccessGated},
		{http.MethodPost, "/api/auth/loginx", AccessGated},
		{http.MethodGet, "/api/pricing/internal", AccessGated},
		{http.MethodGet, "/api/payments/intent/pi_1/status/raw", AccessGated},
		{http.MethodPost, "/api/subscriptions//cancel", AccessGated},
		{http.MethodGet, "/API/auth/me", AccessGated},

		// Метод тоже часть ключа.
		{http.MethodDelete, "/api/auth/login", AccessGated},
		{http.MethodGet, "/api/unknown", AccessGated},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Classify(tt.method, tt.path))
		})
	}
}

func TestTable_LiteralBeatsParam(t *testing.T) {
	table := MustTable([]Route{
		{http.MethodGet, "/api/items/{id}", AccessGated},
		{http.MethodGet, "/api/items/public", AccessPublic},
	})

	assert.Equal(t, AccessPublic, table.Classify(http.MethodGet, "/api/items/public"))
	assert.Equal(t, AccessGated, table.Classify(http.MethodGet, "/api/items/42"))
}

func TestNewTable_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		routes []Route
	}{
		{"relative pattern", []Route{{http.MethodGet, "api/x", AccessPublic}}},
		{"wildcard", []Route{{http.MethodGet, "/docs/*", AccessPublic}}},
		{"unknown class", []Route{{http.MethodGet, "/x", Access("open")}}},
		{"duplicate", []Route{
			{http.MethodGet, "/x/{id}", AccessPublic},
			{http.MethodGet, "/x/{key}", AccessGated},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.routes)
			require.Error(t, err)
		})
	}
}

func TestSurfaceOf(t *testing.T) {
	assert.Equal(t, SurfaceAPI, SurfaceOf("/api/accounts"))
	assert.Equal(t, SurfaceAPI, SurfaceOf("/api"))
	assert.Equal(t, SurfaceBrowser, SurfaceOf("/apiary"))
	assert.Equal(t, SurfaceBrowser, SurfaceOf("/dashboard"))
}
