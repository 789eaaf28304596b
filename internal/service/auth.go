package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/octobees/lead-campaign/internal/auth"
	"github.com/octobees/lead-campaign/internal/entity"
	"github.com/octobees/lead-campaign/internal/repository"
)

// ErrInvalidCredentials masks lookup and password failures alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

var validRoles = map[string]bool{"admin": true, "viewer": true}

// AuthService coordinates credential validation and token issuance.
type AuthService struct {
	operators repository.OperatorsRepository
	tokens    *auth.TokenManager
}

// NewAuthService constructs a new AuthService.
func NewAuthService(operators repository.OperatorsRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{operators: operators, tokens: tokens}
}

// Login validates credentials and returns a JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	operator, err := s.operators.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrOperatorNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.tokens.Issue(operator.ID.String(), operator.Email, operator.Role)
}

// CreateOperator registers a dashboard account with a bcrypt hashed password.
func (s *AuthService) CreateOperator(ctx context.Context, email, password, role string) (*entity.Operator, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("a valid email is required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	if !validRoles[role] {
		return nil, errors.New("role must be admin or viewer")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return s.operators.Create(ctx, email, string(hash), role)
}
