package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ethioshop/marketplace/internal/auth/token"
	"github.com/ethioshop/marketplace/internal/repository"
	"github.com/ethioshop/marketplace/internal/support/hash"
)

// AuthService handles account registration and credential login.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}

// RegisterInput carries a new account request.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string
	Location string
}

// AuthResult carries the signed token and the account view.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserView  `json:"user"`
}

// UserView is the safe projection of an account.
type UserView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
	Location string `json:"location,omitempty"`
}

type authService struct {
	users     repository.UserRepository
	hasher    hash.Hasher
	tokens    *token.Manager
	logger    *slog.Logger
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewAuthService assembles the auth service dependencies.
func NewAuthService(users repository.UserRepository, hasher hash.Hasher, tokens *token.Manager, logger *slog.Logger) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(s.sanitizer.Sanitize(input.Name))
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrInvalidArgument)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidArgument)
	}
	if len(input.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidArgument)
	}
	role := strings.ToLower(strings.TrimSpace(input.Role))
	switch role {
	case "":
		role = repository.UserRoleBuyer
	case repository.UserRoleBuyer, repository.UserRoleSeller:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, input.Role)
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &repository.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: hashed,
		Role:         role,
		Location:     strings.TrimSpace(s.sanitizer.Sanitize(input.Location)),
		CreatedAt:    s.now().Unix(),
		UpdatedAt:    s.now().Unix(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "account registered", "user_id", user.ID, "role", user.Role)
	return s.issueFor(user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidArgument)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, hash.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}
	s.logger.InfoContext(ctx, "login", "user_id", user.ID)
	return s.issueFor(user)
}

func (s *authService) issueFor(user *repository.User) (*AuthResult, error) {
	signed, claims, err := s.tokens.Issue(token.IssueInput{
		Subject: user.ID,
		Role:    user.Role,
		Name:    user.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{
		Token:     signed,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      viewOf(user),
	}, nil
}

func viewOf(user *repository.User) UserView {
	return UserView{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Phone:    user.Phone,
		Role:     user.Role,
		Verified: user.Verified,
		Location: user.Location,
	}
}
