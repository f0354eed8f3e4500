// Package jwt реализует выпуск и проверку подписанных токенов доступа.
//
// Сервис не хранит состояние: проверка доверяет собственной подписи и
// не сверяет данные с хранилищем учётных записей на каждом запросе.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/finportal/internal/lib/apperr"
	"github.com/magabrotheeeer/finportal/internal/models"
)

// DefaultTTL — время жизни токена по умолчанию.
const DefaultTTL = 24 * time.Hour

var (
	// ErrInvalidToken возвращается при неверной подписи или повреждённом токене.
	ErrInvalidToken = apperr.New(apperr.KindAuthRequired, "invalid token")
	// ErrExpiredToken возвращается, если срок действия токена истёк.
	ErrExpiredToken = apperr.New(apperr.KindAuthRequired, "token expired")
)

// Maker выпускает и проверяет HS256-токены.
type Maker struct {
	secretKey []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// Option настраивает Maker.
type Option func(*Maker)

// WithClock подменяет источник времени. Используется в тестах.
func WithClock(now func() time.Time) Option {
	return func(m *Maker) {
		m.now = now
	}
}

// NewJWTMaker создаёт Maker с секретным ключом и TTL. Нулевой TTL заменяется на DefaultTTL.
func NewJWTMaker(secretKey string, ttl time.Duration, opts ...Option) *Maker {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	m := &Maker{
		secretKey: []byte(secretKey),
		tokenTTL:  ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL возвращает время жизни выпускаемых токенов.
func (m *Maker) TTL() time.Duration {
	return m.tokenTTL
}

// Issue выпускает токен для пользователя и возвращает его вместе со сроком действия.
func (m *Maker) Issue(user models.User) (string, time.Time, error) {
	const op = "jwt.Issue"

	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.tokenTTL)
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return token, expiresAt, nil
}

// Verify проверяет подпись и срок действия токена и возвращает его claims.
func (m *Maker) Verify(tokenStr string) (*Claims, error) {
	const op = "jwt.Verify"

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secretKey, nil
	},
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken.With(fmt.Errorf("%s: %w", op, err))
		}
		return nil, ErrInvalidToken.With(fmt.Errorf("%s: %w", op, err))
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken.With(fmt.Errorf("%s: malformed claims", op))
	}
	return claims, nil
}
