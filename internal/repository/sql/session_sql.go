package sql_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/EightfoldWitch/the-hermit/internal/models"
	"github.com/EightfoldWitch/the-hermit/internal/repository"
)

// SQLSessionRepository implements SessionRepository on the UsersSessions table.
type SQLSessionRepository struct {
	db *sql.DB
	dialect
}

var _ repository.SessionRepository = (*SQLSessionRepository)(nil)

// NewSQLSessionRepository creates a session store on db. driver selects the SQL dialect.
func NewSQLSessionRepository(db *sql.DB, driver string) *SQLSessionRepository {
	return &SQLSessionRepository{
		db:      db,
		dialect: newDialect(driver),
	}
}

// ReplaceSession locks the user row, deletes the user's sessions at the same
// location and inserts session, all in one transaction.
func (r *SQLSessionRepository) ReplaceSession(ctx context.Context, session *models.Session) (evicted []string, err error) {
	if session == nil || session.Token == "" || session.UserID <= 0 {
		return nil, repository.ErrInvalidSession
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning session transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	lock := r.sb.Select("users_key").From(usersTable).Where(sq.Eq{"users_key": session.UserID})
	if r.lockRow != "" {
		lock = lock.Suffix(r.lockRow)
	}
	query, args, err := lock.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building lock query: %w", err)
	}
	var userKey int64
	if err = tx.QueryRowContext(ctx, query, args...).Scan(&userKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = repository.ErrUserNotFound
			return nil, err
		}
		return nil, fmt.Errorf("locking user row: %w", err)
	}

	evicted, err = r.deleteReturning(ctx, tx, sq.Eq{
		"users_key":        session.UserID,
		"session_location": session.Location,
	})
	if err != nil {
		return nil, err
	}

	query, args, err = r.sb.Insert(sessionsTable).
		Columns(sessionColumns...).
		Values(session.Token, session.UserID, session.StartedAt.UTC(), session.LastActivityAt.UTC(), session.Location).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session insert: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing session transaction: %w", err)
	}
	return evicted, nil
}

// GetSession retrieves a session by its token.
func (r *SQLSessionRepository) GetSession(ctx context.Context, token string) (*models.Session, error) {
	query, args, err := r.sb.Select(sessionColumns...).
		From(sessionsTable).
		Where(sq.Eq{"session_key": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session query: %w", err)
	}

	session, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return session, nil
}

// UpdateActivity moves session_last_activity forward. The guard on the old value
// keeps a late writer from moving it back.
func (r *SQLSessionRepository) UpdateActivity(ctx context.Context, token string, at time.Time) error {
	at = at.UTC()
	query, args, err := r.sb.Update(sessionsTable).
		Set("session_last_activity", at).
		Where(sq.Eq{"session_key": token}).
		Where(sq.Lt{"session_last_activity": at}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building activity update: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("updating session activity: %w", err)
	}
	return nil
}

// DeleteSession removes a session.
func (r *SQLSessionRepository) DeleteSession(ctx context.Context, token string) error {
	query, args, err := r.sb.Delete(sessionsTable).Where(sq.Eq{"session_key": token}).ToSql()
	if err != nil {
		return fmt.Errorf("building session delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteUserSessions deletes all sessions for a user.
func (r *SQLSessionRepository) DeleteUserSessions(ctx context.Context, userID int64) ([]string, error) {
	return r.deleteReturning(ctx, r.db, sq.Eq{"users_key": userID})
}

// ListSessions returns every row of UsersSessions.
func (r *SQLSessionRepository) ListSessions(ctx context.Context) ([]*models.Session, error) {
	query, args, err := r.sb.Select(sessionColumns...).From(sessionsTable).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session list: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// deleteReturning deletes the sessions matching where and returns their tokens.
func (r *SQLSessionRepository) deleteReturning(ctx context.Context, q queryer, where sq.Eq) ([]string, error) {
	query, args, err := r.sb.Delete(sessionsTable).
		Where(where).
		Suffix("RETURNING session_key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session delete: %w", err)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("deleting sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scanning deleted session: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating deleted sessions: %w", err)
	}
	return tokens, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var session models.Session
	if err := row.Scan(
		&session.Token,
		&session.UserID,
		&session.StartedAt,
		&session.LastActivityAt,
		&session.Location,
	); err != nil {
		return nil, err
	}
	session.StartedAt = session.StartedAt.UTC()
	session.LastActivityAt = session.LastActivityAt.UTC()
	return &session, nil
}
