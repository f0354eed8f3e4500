// Package middlewarectx хранит данные аутентифицированного запроса в контексте
// и содержит вспомогательные HTTP middleware, не относящиеся к шлюзу доступа.
package middlewarectx

import (
	"context"
	"net/http"
	"time"

	"github.com/magabrotheeeer/finportal/internal/lib/apperr"
	"github.com/magabrotheeeer/finportal/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// PrincipalKey — ключ личности, восстановленной из токена.
const PrincipalKey Key = "principal"

// TokenCookie — cookie с токеном для браузерных страниц.
const TokenCookie = "finportal_token"

// ErrNoPrincipal возвращается обработчиком, если запрос дошёл до него без аутентификации.
var ErrNoPrincipal = apperr.New(apperr.KindAuthRequired, "authentication required")

// WithPrincipal кладёт личность в контекст.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFrom достаёт личность из контекста. ok=false, если запрос не аутентифицирован.
func PrincipalFrom(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*models.Principal)
	return p, ok && p != nil
}

// SetTokenCookie выставляет браузеру cookie с токеном.
func SetTokenCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
