package jwt

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/finportal/internal/models"
)

// Claims описывает данные, которые хранятся в токене.
// Набор полей детерминирован: id, username, email и role пользователя.
type Claims struct {
	UserID               string      `json:"id"`       // ID пользователя
	Username             string      `json:"username"` // Имя пользователя
	Email                string      `json:"email"`    // Электронная почта
	Role                 models.Role `json:"role"`     // Роль на момент выпуска токена
	jwt.RegisteredClaims             // ExpiresAt, IssuedAt и Subject
}

// Principal возвращает личность, зашитую в токен, без обращения к хранилищу.
// Изменение роли вступает в силу только со следующим выпуском токена.
func (c *Claims) Principal() *models.Principal {
	return &models.Principal{
		UserID:   c.UserID,
		Username: c.Username,
		Email:    c.Email,
		Role:     c.Role,
	}
}
