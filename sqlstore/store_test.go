package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authcore/internal/storetest"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/user"
)

func setupTestStorage(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DialectSQLite, filepath.Join(t.TempDir(), "authcore.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteUserStoreConformance(t *testing.T) {
	storetest.RunUserStore(t, func(t *testing.T) user.Store { return setupTestStorage(t) })
}

func TestSQLiteSessionStoreConformance(t *testing.T) {
	storetest.RunSessionStore(t, func(t *testing.T) session.Store { return setupTestStorage(t) })
}

func TestSQLiteTransactorConformance(t *testing.T) {
	storetest.RunTransactor(t, func(t *testing.T) (storetest.Transactor, user.Store, session.Store) {
		s := setupTestStorage(t)
		return s, s, s
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := setupTestStorage(t)
	require.NoError(t, s.Migrate(context.Background()))

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestUserOptionalColumnsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	tests := []struct {
		name   string
		mutate func(u *user.User)
	}{
		{
			name:   "no otp no codes",
			mutate: func(u *user.User) { u.RecoveryCodes = nil },
		},
		{
			name: "enrolled admin",
			mutate: func(u *user.User) {
				u.SetOTP("JBSWY3DPEHPK3PXP", "otpauth://totp/authcore:x")
				u.OTPVerified = true
				u.IsAdmin = true
			},
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := storetest.NewUser("user" + string(rune('a'+i)))
			tt.mutate(u)
			require.NoError(t, s.Create(ctx, u))

			got, err := s.GetByID(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, u.OTPSecret, got.OTPSecret)
			assert.Equal(t, u.OTPEnrollmentURI, got.OTPEnrollmentURI)
			assert.Equal(t, u.OTPVerified, got.OTPVerified)
			assert.Equal(t, u.IsAdmin, got.IsAdmin)
			assert.Equal(t, len(u.RecoveryCodes), len(got.RecoveryCodes))
		})
	}
}

func TestUpdateMissingUser(t *testing.T) {
	s := setupTestStorage(t)
	u := storetest.NewUser("nobody")
	assert.ErrorIs(t, s.Update(context.Background(), u), user.ErrNotFound)
}

func TestRotateInsideOuterTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)
	require.NoError(t, s.Save(ctx, storetest.NewSession("u1", "old", storetest.Base)))

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Rotate(ctx, "old", storetest.NewSession("u1", "new", storetest.Base.Add(time.Minute))); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = s.FindByUserAndSession(ctx, "u1", "old")
	assert.NoError(t, err)
	_, err = s.FindByUserAndSession(ctx, "u1", "new")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestNewRejectsUnknownDialect(t *testing.T) {
	_, err := New(nil, Dialect("mysql"))
	assert.Error(t, err)
}
