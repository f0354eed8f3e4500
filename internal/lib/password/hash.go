// Package password хеширует и проверяет пароли пользователей с помощью bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch возвращается, если пароль не соответствует хешу.
var ErrMismatch = errors.New("password mismatch")

// Hasher хеширует пароли с заданной стоимостью bcrypt.
type Hasher struct {
	cost int
}

// NewHasher создаёт Hasher. Стоимость вне допустимого диапазона заменяется на bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash возвращает bcrypt-хеш пароля.
func (h *Hasher) Hash(password string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Compare сверяет пароль с хешем. Несовпадение возвращается как ErrMismatch.
func (h *Hasher) Compare(hash, password string) error {
	const op = "password.Compare"
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
