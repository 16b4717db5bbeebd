package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethioshop/marketplace/internal/repository"
)

// UserService exposes account lookups and device registration.
type UserService interface {
	Me(ctx context.Context, userID string) (*UserView, error)
	RegisterPushToken(ctx context.Context, userID, pushToken string) error
}

type userService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService assembles the user service dependencies.
func NewUserService(users repository.UserRepository, logger *slog.Logger) UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &userService{users: users, logger: logger}
}

func (s *userService) Me(ctx context.Context, userID string) (*UserView, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	view := viewOf(user)
	return &view, nil
}

// RegisterPushToken stores the device token used by the push dispatch job.
func (s *userService) RegisterPushToken(ctx context.Context, userID, pushToken string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	pushToken = strings.TrimSpace(pushToken)
	if pushToken == "" {
		return fmt.Errorf("%w: push token is required", ErrInvalidArgument)
	}
	if err := s.users.SetPushToken(ctx, userID, pushToken); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return fmt.Errorf("store push token: %w", err)
	}
	s.logger.InfoContext(ctx, "push token registered", "user_id", userID)
	return nil
}
