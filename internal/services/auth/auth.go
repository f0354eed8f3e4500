// Package auth реализует регистрацию, вход и управление ролями пользователей.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/finportal/internal/lib/apperr"
	"github.com/magabrotheeeer/finportal/internal/lib/pagination"
	"github.com/magabrotheeeer/finportal/internal/lib/password"
	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/storage"
)

var (
	// ErrInvalidCredentials возвращается при неизвестном логине или неверном пароле.
	ErrInvalidCredentials = apperr.New(apperr.KindAuthRequired, "invalid credentials")
	// ErrInvalidRole возвращается при попытке назначить несуществующую роль.
	ErrInvalidRole = apperr.New(apperr.KindValidation, "role must be developer or admin")
)

// UserRepository хранит учётные записи.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByLogin(ctx context.Context, login string) (models.User, error)
	GetUserByID(ctx context.Context, userID string) (models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error)
	UpdateUserRole(ctx context.Context, userID string, role models.Role) (models.User, error)
}

// TokenIssuer выпускает токены доступа.
type TokenIssuer interface {
	Issue(user models.User) (string, time.Time, error)
}

// PasswordHasher хеширует и сверяет пароли.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// RegisterInput — данные для регистрации.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Result — выпущенный токен и пользователь, для которого он выпущен.
type Result struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

// Service управляет учётными записями.
type Service struct {
	repo   UserRepository
	tokens TokenIssuer
	hasher PasswordHasher
	log    *slog.Logger
}

// NewService создаёт сервис учётных записей.
func NewService(repo UserRepository, tokens TokenIssuer, hasher PasswordHasher, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		hasher: hasher,
		log:    log,
	}
}

// Register создаёт пользователя с ролью developer и выпускает для него токен.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Result, error) {
	const op = "services.auth.Register"

	user, err := s.create(ctx, in, models.RoleDeveloper)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.issue(user)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", slog.String("user_id", user.ID), slog.String("username", user.Username))
	return res, nil
}

// CreateAdmin создаёт пользователя с ролью admin. Используется операторской утилитой.
func (s *Service) CreateAdmin(ctx context.Context, in RegisterInput) (models.User, error) {
	const op = "services.auth.CreateAdmin"

	user, err := s.create(ctx, in, models.RoleAdmin)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Warn("admin user created", slog.String("user_id", user.ID), slog.String("username", user.Username))
	return user, nil
}

func (s *Service) create(ctx context.Context, in RegisterInput, role models.Role) (models.User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, err
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = in.Username
	}
	return s.repo.CreateUser(ctx, models.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         role,
	})
}

// Login проверяет пароль пользователя, найденного по username или email, и выпускает токен.
func (s *Service) Login(ctx context.Context, login, pass string) (Result, error) {
	const op = "services.auth.Login"

	user, err := s.repo.GetUserByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, storage.ErrUserNotFound) {
		return Result{}, ErrInvalidCredentials
	}
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.hasher.Compare(user.PasswordHash, pass); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return Result{}, ErrInvalidCredentials
		}
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.issue(user)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// IssueToken выпускает токен для существующего пользователя.
func (s *Service) IssueToken(ctx context.Context, userID string) (Result, error) {
	const op = "services.auth.IssueToken"

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.issue(user)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func (s *Service) issue(user models.User) (Result, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return Result{}, err
	}
	return Result{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Me возвращает актуальную запись пользователя.
func (s *Service) Me(ctx context.Context, userID string) (models.User, error) {
	const op = "services.auth.Me"

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Users возвращает страницу пользователей. Хеш пароля не сериализуется.
func (s *Service) Users(ctx context.Context, p pagination.Params) (pagination.Envelope[models.User], error) {
	const op = "services.auth.Users"

	users, total, err := s.repo.ListUsers(ctx, p.Limit(), p.Offset())
	if err != nil {
		return pagination.Envelope[models.User]{}, fmt.Errorf("%s: %w", op, err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return pagination.NewEnvelope(users, p, total), nil
}

// ChangeRole меняет роль пользователя. Новая роль попадает в токен только при следующем входе.
func (s *Service) ChangeRole(ctx context.Context, actorID, userID string, role models.Role) (models.User, error) {
	const op = "services.auth.ChangeRole"

	if !role.Valid() {
		return models.User{}, ErrInvalidRole
	}
	user, err := s.repo.UpdateUserRole(ctx, userID, role)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	user.PasswordHash = ""
	s.log.Info("user role changed",
		slog.String("actor_id", actorID),
		slog.String("user_id", userID),
		slog.String("role", string(role)))
	return user, nil
}
