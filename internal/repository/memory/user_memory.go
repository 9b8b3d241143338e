package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/EightfoldWitch/the-hermit/internal/models"
	"github.com/EightfoldWitch/the-hermit/internal/repository"
)

// MemoryUserRepository implements UserRepository in memory (NOT FOR PRODUCTION)
type MemoryUserRepository struct {
	users      map[int64]models.User
	byUsername map[string]int64
	nextID     int64
	mutex      sync.RWMutex
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:      make(map[int64]models.User),
		byUsername: make(map[string]int64),
		nextID:     1,
	}
}

var _ repository.UserRepository = (*MemoryUserRepository)(nil)

func (r *MemoryUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.byUsername[user.Username]; exists {
		return repository.ErrUserExists
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = *user
	r.byUsername[user.Username] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, exists := r.byUsername[username]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	user := r.users[id]
	return &user, nil
}

func (r *MemoryUserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) UpdateUserState(ctx context.Context, id int64, state string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, exists := r.users[id]
	if !exists {
		return repository.ErrUserNotFound
	}
	user.State = state
	r.users[id] = user
	return nil
}

func (r *MemoryUserRepository) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if limit <= 0 || offset < 0 || offset >= len(r.users) {
		return nil, nil
	}
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	ids = ids[offset:]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	users := make([]models.User, len(ids))
	for i, id := range ids {
		users[i] = r.users[id]
	}
	return users, nil
}

func (r *MemoryUserRepository) CountUsers(ctx context.Context) (int, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.users), nil
}

func (r *MemoryUserRepository) Ping(ctx context.Context) error {
	return nil
}
