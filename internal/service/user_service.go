package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/EightfoldWitch/the-hermit/internal/models"
	"github.com/EightfoldWitch/the-hermit/internal/repository"
)

var (
	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user account is not active")
	ErrInvalidUserState   = errors.New("invalid user state")
	ErrMissingFields      = errors.New("username and password required")
	ErrInvalidPaging      = errors.New("invalid paging parameters")
)

// Paging bounds for ListUsers.
const (
	DefaultUserListLimit = 100
	MaxUserListLimit     = 1000
)

var _ UserGenerator = (*UserService)(nil)

type UserService struct {
	userRepo repository.UserRepository
	sessions SessionGenerator
	hasher   PasswordHasher
}

func NewUserService(userRepo repository.UserRepository, sessions SessionGenerator, hasher PasswordHasher) *UserService {
	return &UserService{
		userRepo: userRepo,
		sessions: sessions,
		hasher:   hasher,
	}
}

// Register creates a Pending account; an admin activates it.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Name:     req.Name,
		Role:     models.RoleUser,
		State:    models.UserStatePending,
	}
	if err := s.CreateUser(ctx, user, req.Password); err != nil {
		return nil, err
	}
	info := user.Info()
	return &info, nil
}

// CreateUser validates password, hashes it into user and stores user.
func (s *UserService) CreateUser(ctx context.Context, user *models.User, password string) error {
	if user.Username == "" || password == "" {
		return ErrMissingFields
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.State == "" {
		user.State = models.UserStatePending
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return err
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	log.Info().Int64("userId", user.ID).Str("username", user.Username).Msg("User created")
	return nil
}

// Login checks the password of an Active user and opens a session at location.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest, location string) (*models.LoginResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.State != models.UserStateActive {
		return nil, ErrUserInactive
	}
	if !s.hasher.Compare(user.PasswordHash, req.Password) {
		log.Debug().Str("username", req.Username).Msg("Password mismatch")
		return nil, ErrInvalidCredentials
	}

	token, err := s.sessions.CreateSession(ctx, user.ID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &models.LoginResponse{
		SessionToken: token,
		User:         user.Info(),
	}, nil
}

// Logout ends the session behind sessionToken.
func (s *UserService) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return errors.New("session token cannot be empty")
	}
	if err := s.sessions.DeleteSession(ctx, sessionToken); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

func (s *UserService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SetUserState changes the account state. Leaving Active ends every session of the user.
func (s *UserService) SetUserState(ctx context.Context, userID int64, state string) error {
	switch state {
	case models.UserStateActive, models.UserStatePending, models.UserStateDisabled:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidUserState, state)
	}

	if err := s.userRepo.UpdateUserState(ctx, userID, state); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("failed to update user state: %w", err)
	}

	if state != models.UserStateActive {
		if _, err := s.sessions.DeleteUserSessions(ctx, userID); err != nil {
			return fmt.Errorf("failed to end user sessions: %w", err)
		}
	}
	log.Info().Int64("userId", userID).Str("state", state).Msg("User state changed")
	return nil
}

// ListUsers returns one page of accounts ordered by ID along with the total count.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) (*models.UserList, error) {
	if limit < 1 || limit > MaxUserListLimit || offset < 0 {
		return nil, ErrInvalidPaging
	}

	users, err := s.userRepo.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	total, err := s.userRepo.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	list := &models.UserList{
		Users:  make([]models.UserInfo, len(users)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for i := range users {
		list.Users[i] = users[i].Info()
	}
	return list, nil
}
