package sql_repo

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EightfoldWitch/the-hermit/internal/config"
	"github.com/EightfoldWitch/the-hermit/internal/database"
	"github.com/EightfoldWitch/the-hermit/internal/database/migrate"
	"github.com/EightfoldWitch/the-hermit/internal/models"
)

// newTestDB opens a migrated SQLite database in a temp dir.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), config.DatabaseSettings{
		Driver: config.DriverSQLite,
		URL:    "file:" + filepath.Join(t.TempDir(), "hermit.db") + "?_fk=1&_txlock=immediate&_busy_timeout=5000",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrate.Up(db, config.DriverSQLite))
	return db
}

// seedUser inserts an Active user and returns its key.
func seedUser(t *testing.T, users *SQLUserRepository, username string) int64 {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		Name:         username,
		Role:         models.RoleUser,
		State:        models.UserStateActive,
		PasswordHash: "hash",
	}
	require.NoError(t, users.CreateUser(context.Background(), user))
	return user.ID
}
