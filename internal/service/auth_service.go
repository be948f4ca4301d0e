package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bms/internal/apperr"
	"bms/internal/models"
	"bms/internal/repository"
	"bms/pkg/crypto"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	users    UserStore
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewAuthService(users UserStore, secret []byte, lifetime time.Duration) *AuthService {
	return &AuthService{users: users, secret: secret, lifetime: lifetime, now: time.Now}
}

// Register creates an active user with the default role.
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Email:          strings.ToLower(strings.TrimSpace(email)),
		HashedPassword: hashed,
		Role:           models.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if isDuplicate(err, repository.ConstraintUserEmail) {
			return nil, apperr.Conflict(msgEmailTaken)
		}
		return nil, err
	}
	return u, nil
}

// Login checks the credentials and issues a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !u.IsActive {
		return "", nil, ErrInvalidCredentials
	}
	if err := crypto.CheckPassword(u.HashedPassword, password); err != nil {
		if errors.Is(err, crypto.ErrPasswordMismatch) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"role":    string(u.Role),
		"exp":     s.now().Add(s.lifetime).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, u, nil
}
