package service

import (
	"context"

	"github.com/ewittman/quad/internal/database"
	"github.com/ewittman/quad/internal/models"
)

// UserService handles user lookups.
type UserService struct {
	users database.UserRepository
}

// NewUserService creates a UserService.
func NewUserService(users database.UserRepository) *UserService {
	return &UserService{users: users}
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, userID int64) (*models.User, error) {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	user, err := s.users.GetByID(callCtx, userID)
	if err != nil {
		return nil, storeFail(err)
	}
	if user == nil {
		return nil, NotFound("NOT_FOUND", "user not found")
	}
	return user, nil
}

// GetByUsername returns a user by username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	user, err := s.users.GetByUsername(callCtx, username)
	if err != nil {
		return nil, storeFail(err)
	}
	if user == nil {
		return nil, NotFound("NOT_FOUND", "user not found")
	}
	return user, nil
}
