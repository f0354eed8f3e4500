// Package models содержит доменные структуры портала: пользователей,
// подписки, платежи, тарифы и записи аудита.
package models

import "time"

// Role — роль пользователя.
type Role string

const (
	// RoleDeveloper назначается при регистрации.
	RoleDeveloper Role = "developer"
	// RoleAdmin обходит проверку подписки и получает доступ к админ-разделу.
	RoleAdmin Role = "admin"
)

// Valid сообщает, является ли роль известной.
func (r Role) Valid() bool {
	return r == RoleDeveloper || r == RoleAdmin
}

// User представляет зарегистрированного пользователя.
// PasswordHash никогда не сериализуется в ответы.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Principal — аутентифицированная личность, восстановленная из токена.
type Principal struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// IsAdmin сообщает, обладает ли личность ролью admin.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
