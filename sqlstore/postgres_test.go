package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authcore/internal/storetest"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/user"
)

func newPostgresWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := New(db, DialectPostgres)
	require.NoError(t, err)
	return s, mock
}

var userRowColumns = []string{
	"id", "username", "password_hash", "otp_secret", "otp_enrollment_uri", "otp_verified",
	"recovery_codes", "password_expired", "is_admin", "version", "created_at", "updated_at",
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: DialectPostgres}
	lite := &Store{dialect: DialectSQLite}

	q := `UPDATE users SET a = ?, b = ? WHERE id = ? AND version = ?`
	assert.Equal(t, `UPDATE users SET a = $1, b = $2 WHERE id = $3 AND version = $4`, pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestPostgresCreateUniqueViolation(t *testing.T) {
	s, mock := newPostgresWithMock(t)
	u := storetest.NewUser("alice")

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+users\b.*VALUES\s*\(\$1,.*\$12\)\s*$`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	err := s.Create(context.Background(), u)
	assert.ErrorIs(t, err, user.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateDBErrorIsWrapped(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	err := s.Create(context.Background(), storetest.NewUser("alice"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, user.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "db down")
}

func TestPostgresGetByUsername(t *testing.T) {
	s, mock := newPostgresWithMock(t)
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(userRowColumns).AddRow(
		"u1", "alice", "$argon2id$x", nil, nil, false,
		`["h1","h2"]`, true, false, int64(3), created.UnixMilli(), created.UnixMilli(),
	)
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`).
		WithArgs("alice").
		WillReturnRows(rows)

	got, err := s.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, []string{"h1", "h2"}, got.RecoveryCodes)
	assert.True(t, got.PasswordExpired)
	assert.Empty(t, got.OTPSecret)
	assert.Equal(t, int64(3), got.Version)
	assert.True(t, got.CreatedAt.Equal(created))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`(?s)FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestPostgresUpdateVersionConflict(t *testing.T) {
	s, mock := newPostgresWithMock(t)
	u := storetest.NewUser("alice")
	u.Version = 4

	mock.ExpectExec(`(?s)^\s*UPDATE\s+users\s+SET.*WHERE\s+id\s*=\s*\$11\s+AND\s+version\s*=\s*\$12\s*$`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			int64(5), sqlmock.AnyArg(), u.ID, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`(?s)FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(u.ID).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			u.ID, "alice", "h", nil, nil, false, `[]`, false, false, int64(5), int64(0), int64(0),
		))

	err := s.Update(context.Background(), u)
	assert.ErrorIs(t, err, user.ErrConflict)
	assert.Equal(t, int64(4), u.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateSuccessBumpsVersion(t *testing.T) {
	s, mock := newPostgresWithMock(t)
	u := storetest.NewUser("alice")

	mock.ExpectExec(`(?s)UPDATE\s+users`).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Update(context.Background(), u))
	assert.Equal(t, int64(1), u.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteAllByUserReturnsIDs(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`^DELETE\s+FROM\s+sessions\s+WHERE\s+user_id\s*=\s*\$1\s+RETURNING\s+session_id$`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"session_id"}).AddRow("a").AddRow("b"))

	ids, err := s.DeleteAllByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRotateMissingRowRollsBack(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE\s+FROM\s+sessions\s+WHERE\s+session_id\s*=\s*\$1$`).
		WithArgs("old").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.Rotate(context.Background(), "old", storetest.NewSession("u1", "new", storetest.Base))
	assert.ErrorIs(t, err, session.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRotateCommits(t *testing.T) {
	s, mock := newPostgresWithMock(t)
	next := storetest.NewSession("u1", "new", storetest.Base)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE\s+FROM\s+sessions\s+WHERE\s+session_id\s*=\s*\$1$`).
		WithArgs("old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+sessions\b.*\$11\)`).
		WithArgs(next.ID, "u1", "new", next.ExpiresAt.UnixMilli(), next.CreatedAt.UnixMilli(),
			false, "", false, "", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Rotate(context.Background(), "old", next))
	require.NoError(t, mock.ExpectationsWereMet())
}
