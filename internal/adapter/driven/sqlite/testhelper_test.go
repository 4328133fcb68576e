package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestDB returns a migrated in-memory database private to the test.
// Writer and reader share it through cache=shared under a name derived from
// t.Name(); journal_mode is left at its default since WAL does not apply to
// memory databases.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		url.PathEscape(t.Name()),
	)

	writer := openTestConn(t, dsn, 1)
	reader := openTestConn(t, dsn, 4)
	db := &DB{Writer: writer, Reader: reader, path: dsn}

	require.NoError(t, RunMigrations(db.Writer), "run migrations")
	return db
}

func openTestConn(t *testing.T, dsn string, maxOpen int) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	conn.SetMaxOpenConns(maxOpen)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.PingContext(t.Context()))
	return conn
}
