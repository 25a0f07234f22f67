package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"product-catalog/internal/auth"
	"product-catalog/internal/domain"
	"product-catalog/internal/repository"
)

var (
	ErrInvalidPassword = errors.New("invalid password")
)

// UserService defines the interface for account operations
type UserService interface {
	SignUp(ctx context.Context, name, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error)
}

// LoginResult is returned by a successful login
type LoginResult struct {
	User  *domain.User
	Token string
}

type userService struct {
	users   repository.UserRepository
	hasher  *auth.PasswordHasher
	tokens  *auth.TokenManager
	timeout time.Duration
}

// NewUserService creates a new instance of UserService
func NewUserService(users repository.UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenManager, timeout time.Duration) UserService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &userService{users: users, hasher: hasher, tokens: tokens, timeout: timeout}
}

// SignUp registers a customer account with a hashed password
func (s *userService) SignUp(ctx context.Context, name, email, password string) (*domain.User, error) {
	return s.create(ctx, name, email, password, domain.RoleUser)
}

func (s *userService) create(ctx context.Context, name, email, password, role string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	email = normalizeEmail(email)

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrUserAlreadyExists
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: hashed,
		Role:     role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the credentials and issues an access token
func (s *userService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(password, user.Password) {
		return nil, ErrInvalidPassword
	}

	token, err := s.tokens.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResult{User: user, Token: token}, nil
}

// EnsureAdmin creates the administrator account unless the email is already registered
func (s *userService) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	user, err := s.create(ctx, name, email, password, domain.RoleAdmin)
	if errors.Is(err, repository.ErrUserAlreadyExists) {
		return s.users.FindByEmail(ctx, normalizeEmail(email))
	}
	return user, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
