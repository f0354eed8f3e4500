package gate

import (
	"fmt"
	"net/http"
	"strings"
)

// Access — класс доступа маршрута.
type Access string

const (
	// AccessPublic не требует аутентификации и не проходит через ограничитель.
	AccessPublic Access = "public"
	// AccessExempt требует аутентификации, проверка подписки пропускается.
	AccessExempt Access = "exempt"
	// AccessGated требует аутентификации и активной подписки. Администраторы проходят без подписки.
	AccessGated Access = "gated"
	// AccessAdmin требует роли admin.
	AccessAdmin Access = "admin"
)

// Surface определяет форму отказа: JSON для API, редирект для браузера.
type Surface string

const (
	SurfaceAPI     Surface = "api"
	SurfaceBrowser Surface = "browser"
)

// SurfaceOf классифицирует путь: всё под /api относится к API, остальное к браузеру.
func SurfaceOf(path string) Surface {
	if path == "/api" || strings.HasPrefix(path, "/api/") {
		return SurfaceAPI
	}
	return SurfaceBrowser
}

// Route — строка таблицы маршрутов.
type Route struct {
	Method  string
	Pattern string
	Access  Access
}

type compiledRoute struct {
	Route
	segments []string
}

// Table сопоставляет (метод, путь) с классом доступа. Шаблоны сравниваются
// по целым сегментам, {param} совпадает ровно с одним непустым сегментом.
// Неизвестный маршрут считается AccessGated.
type Table struct {
	routes []compiledRoute
}

// NewTable проверяет шаблоны и строит таблицу.
func NewTable(routes []Route) (*Table, error) {
	const op = "gate.NewTable"

	t := &Table{routes: make([]compiledRoute, 0, len(routes))}
	seen := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("%s: pattern %q must start with /", op, r.Pattern)
		}
		switch r.Access {
		case AccessPublic, AccessExempt, AccessGated, AccessAdmin:
		default:
			return nil, fmt.Errorf("%s: unknown access class %q for %s %s", op, r.Access, r.Method, r.Pattern)
		}
		segs := splitPath(r.Pattern)
		for _, s := range segs {
			if strings.ContainsAny(s, "*") {
				return nil, fmt.Errorf("%s: wildcard in %q is not supported", op, r.Pattern)
			}
		}
		method := strings.ToUpper(r.Method)
		key := method + " " + strings.Join(normalize(segs), "/")
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%s: duplicate route %s %s", op, method, r.Pattern)
		}
		seen[key] = struct{}{}
		r.Method = method
		t.routes = append(t.routes, compiledRoute{Route: r, segments: segs})
	}
	return t, nil
}

// MustTable вызывает NewTable и паникует при ошибке. Для статических таблиц.
func MustTable(routes []Route) *Table {
	t, err := NewTable(routes)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup возвращает маршрут таблицы. Литеральные сегменты важнее параметров.
func (t *Table) Lookup(method, path string) (Route, bool) {
	method = strings.ToUpper(method)
	if method == http.MethodHead {
		method = http.MethodGet
	}
	segs := splitPath(path)

	best, bestScore := -1, -1
	for i, r := range t.routes {
		if r.Method != method || len(r.segments) != len(segs) {
			continue
		}
		score, ok := match(r.segments, segs)
		if ok && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Route{}, false
	}
	return t.routes[best].Route, true
}

// Classify возвращает класс доступа. Неизвестные маршруты закрыты: AccessGated.
func (t *Table) Classify(method, path string) Access {
	if r, ok := t.Lookup(method, path); ok {
		return r.Access
	}
	return AccessGated
}

// Routes возвращает строки таблицы.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	for i, r := range t.routes {
		out[i] = r.Route
	}
	return out
}

// match возвращает число совпавших литеральных сегментов.
func match(pattern, segs []string) (int, bool) {
	literal := 0
	for i, p := range pattern {
		if isParam(p) {
			if segs[i] == "" {
				return 0, false
			}
			continue
		}
		if p != segs[i] {
			return 0, false
		}
		literal++
	}
	return literal, true
}

func isParam(seg string) bool {
	return len(seg) > 2 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return []string{""}
	}
	return strings.Split(trimmed, "/")
}

func normalize(segs []string) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		if isParam(s) {
			s = "{}"
		}
		out[i] = s
	}
	return out
}

// DefaultRoutes возвращает таблицу доступа портала.
func DefaultRoutes() []Route {
	return []Route{
		{http.MethodPost, "/api/auth/register", AccessPublic},
		{http.MethodPost, "/api/auth/login", AccessPublic},
		{http.MethodGet, "/api/auth/me", AccessExempt},
		{http.MethodGet, "/api/pricing", AccessPublic},

		{http.MethodPost, "/api/payments/intent", AccessExempt},
		{http.MethodGet, "/api/payments/intent/{id}/status", AccessExempt},
		{http.MethodPost, "/api/payments/webhook", AccessPublic},

		{http.MethodPost, "/api/subscriptions", AccessExempt},
		{http.MethodGet, "/api/subscriptions/active", AccessExempt},
		{http.MethodPost, "/api/subscriptions/{id}/cancel", AccessGated},

		{http.MethodGet, "/api/accounts", AccessGated},
		{http.MethodGet, "/api/transactions", AccessGated},
		{http.MethodPost, "/api/transfer", AccessGated},
		{http.MethodGet, "/api/invoices", AccessGated},
		{http.MethodGet, "/api/logs", AccessGated},

		{http.MethodGet, "/api/admin/users", AccessAdmin},
		{http.MethodPut, "/api/admin/users/{id}/role", AccessAdmin},
		{http.MethodPost, "/api/admin/subscriptions/{id}/cancel", AccessAdmin},
		{http.MethodGet, "/api/admin/logs", AccessAdmin},

		{http.MethodGet, "/", AccessPublic},
		{http.MethodGet, "/pricing", AccessPublic},
		{http.MethodGet, "/about", AccessPublic},
		{http.MethodGet, "/login", AccessPublic},
		{http.MethodGet, "/dashboard", AccessGated},
	}
}
