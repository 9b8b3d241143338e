package repository

import (
	"context"
	"fmt"

	"github.com/EightfoldWitch/the-hermit/internal/models"
)

// UserRepository defines operations for storing/retrieving user accounts
type UserRepository interface {
	// CreateUser stores the user and sets its ID.
	// It should return ErrUserExists if the username is already taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername should return ErrUserNotFound if the user does not exist.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByID should return ErrUserNotFound if the user does not exist.
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	// UpdateUserState should return ErrUserNotFound if the user does not exist.
	UpdateUserState(ctx context.Context, id int64, state string) error

	// ListUsers returns at most limit users ordered by ID, skipping the first offset.
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)

	// CountUsers returns the number of stored users.
	CountUsers(ctx context.Context) (int, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// Common errors
var ErrUserNotFound = fmt.Errorf("user not found")
var ErrUserExists = fmt.Errorf("user already exists")
