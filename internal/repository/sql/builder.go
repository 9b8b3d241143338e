package sql_repo

import (
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/EightfoldWitch/the-hermit/internal/config"
)

const (
	usersTable    = "Users"
	sessionsTable = "UsersSessions"
)

// sessionColumns lists columns returned by session SELECT queries, in scan order.
var sessionColumns = []string{
	"session_key", "users_key", "session_time_start", "session_last_activity", "session_location",
}

// userColumns lists columns returned by user SELECT queries, in scan order.
var userColumns = []string{
	"users_key", "users_id", "users_email", "users_name", "users_role", "users_password", "users_state",
}

// dialect holds what differs between the supported drivers.
type dialect struct {
	sb sq.StatementBuilderType
	// lockRow is appended to a SELECT to lock the matched rows for the transaction.
	lockRow string
}

func newDialect(driver string) dialect {
	if driver == config.DriverPostgres {
		return dialect{
			sb:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
			lockRow: "FOR UPDATE",
		}
	}
	// SQLite serializes writers; the transaction itself is the lock.
	return dialect{sb: sq.StatementBuilder.PlaceholderFormat(sq.Question)}
}

// isUniqueViolation reports whether err is a unique constraint failure on either driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
