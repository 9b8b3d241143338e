package sql_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/EightfoldWitch/the-hermit/internal/models"
	"github.com/EightfoldWitch/the-hermit/internal/repository"
)

// SQLUserRepository implements UserRepository on the Users table.
type SQLUserRepository struct {
	db *sql.DB
	dialect
}

var _ repository.UserRepository = (*SQLUserRepository)(nil)

func NewSQLUserRepository(db *sql.DB, driver string) *SQLUserRepository {
	return &SQLUserRepository{
		db:      db,
		dialect: newDialect(driver),
	}
}

func (r *SQLUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query, args, err := r.sb.Insert(usersTable).
		Columns(userColumns[1:]...).
		Values(user.Username, user.Email, user.Name, user.Role, user.PasswordHash, user.State).
		Suffix("RETURNING users_key").
		ToSql()
	if err != nil {
		return fmt.Errorf("building user insert: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUserExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *SQLUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, sq.Eq{"users_id": username})
}

func (r *SQLUserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getUser(ctx, sq.Eq{"users_key": id})
}

func (r *SQLUserRepository) UpdateUserState(ctx context.Context, id int64, state string) error {
	query, args, err := r.sb.Update(usersTable).
		Set("users_state", state).
		Where(sq.Eq{"users_key": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building user state update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating user state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *SQLUserRepository) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 || offset < 0 {
		return nil, nil
	}
	query, args, err := r.sb.Select(userColumns...).
		From(usersTable).
		OrderBy("users_key").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building user list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

func (r *SQLUserRepository) CountUsers(ctx context.Context) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").From(usersTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building user count query: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return total, nil
}

func (r *SQLUserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLUserRepository) getUser(ctx context.Context, where sq.Eq) (*models.User, error) {
	query, args, err := r.sb.Select(userColumns...).From(usersTable).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building user query: %w", err)
	}

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

// scanUser reads one row selected with userColumns. Email and name may be NULL.
func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var (
		user  models.User
		email sql.NullString
		name  sql.NullString
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&email,
		&name,
		&user.Role,
		&user.PasswordHash,
		&user.State,
	); err != nil {
		return nil, err
	}
	user.Email = email.String
	user.Name = name.String
	return &user, nil
}
