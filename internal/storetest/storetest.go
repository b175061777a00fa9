// Package storetest is the shared conformance suite for user.Store and
// session.Store adapters.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/user"
)

// Base is the reference time used for fixtures.
var Base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// Transactor is implemented by adapters that support WithinTx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewUser returns a fixture user with two recovery hashes.
func NewUser(username string) *user.User {
	return &user.User{
		ID:            uuid.NewString(),
		Username:      username,
		PasswordHash:  "$argon2id$fixture",
		RecoveryCodes: []string{"hash-1", "hash-2"},
		CreatedAt:     Base,
		UpdatedAt:     Base,
	}
}

// NewSession returns a fixture session row.
func NewSession(userID, sid string, created time.Time) *session.Session {
	return &session.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sid,
		CreatedAt: created,
		ExpiresAt: created.Add(7 * 24 * time.Hour),
	}
}

// RunUserStore exercises the user.Store contract against a fresh store.
func RunUserStore(t *testing.T, newStore func(t *testing.T) user.Store) {
	t.Run("create and get", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		u := NewUser("alice")
		u.OTPSecret = "SECRET"
		u.OTPEnrollmentURI = "otpauth://totp/authcore:alice"
		require.NoError(t, s.Create(ctx, u))

		byName, err := s.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byName.ID)
		assert.Equal(t, u.RecoveryCodes, byName.RecoveryCodes)
		assert.Equal(t, "SECRET", byName.OTPSecret)
		assert.Equal(t, u.OTPEnrollmentURI, byName.OTPEnrollmentURI)
		assert.True(t, byName.CreatedAt.Equal(Base))

		byID, err := s.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.Username)
	})

	t.Run("duplicate username", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Create(ctx, NewUser("bob")))
		assert.ErrorIs(t, s.Create(ctx, NewUser("bob")), user.ErrAlreadyExists)
	})

	t.Run("not found", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.GetByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, user.ErrNotFound)
		_, err = s.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("update bumps version and rejects stale writers", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		u := NewUser("carol")
		require.NoError(t, s.Create(ctx, u))

		first, err := s.GetByID(ctx, u.ID)
		require.NoError(t, err)
		stale, err := s.GetByID(ctx, u.ID)
		require.NoError(t, err)

		first.RecoveryCodes = first.RecoveryCodes[1:]
		first.PasswordExpired = true
		first.OTPVerified = true
		first.OTPSecret = "S"
		first.UpdatedAt = Base.Add(time.Minute)
		require.NoError(t, s.Update(ctx, first))
		assert.Equal(t, u.Version+1, first.Version)

		stale.RecoveryCodes = nil
		assert.ErrorIs(t, s.Update(ctx, stale), user.ErrConflict)

		got, err := s.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"hash-2"}, got.RecoveryCodes)
		assert.True(t, got.PasswordExpired)
		assert.True(t, got.OTPVerified)
		assert.Equal(t, first.Version, got.Version)
		assert.True(t, got.UpdatedAt.Equal(Base.Add(time.Minute)))
	})

	t.Run("concurrent consumers serialize on version", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		u := NewUser("dave")
		require.NoError(t, s.Create(ctx, u))

		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				cur, err := s.GetByID(ctx, u.ID)
				if err != nil {
					return
				}
				if len(cur.RecoveryCodes) == 0 {
					return
				}
				cur.RemoveRecoveryCode(0)
				if err := s.Update(ctx, cur); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				} else if !errors.Is(err, user.ErrConflict) {
					t.Errorf("unexpected update error: %v", err)
				}
			}()
		}
		wg.Wait()

		got, err := s.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(successes), got.Version-u.Version)
		assert.Equal(t, 2-successes, len(got.RecoveryCodes))
	})
}

// RunSessionStore exercises the session.Store contract against a fresh store.
func RunSessionStore(t *testing.T, newStore func(t *testing.T) session.Store) {
	t.Run("save find delete", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		sess := NewSession("u1", "sid-1", Base)
		sess.Device = &session.Device{OS: "android", IsMobile: true, Model: "Pixel"}
		require.NoError(t, s.Save(ctx, sess))

		got, err := s.FindByUserAndSession(ctx, "u1", "sid-1")
		require.NoError(t, err)
		assert.Equal(t, sess.ID, got.ID)
		assert.True(t, got.ExpiresAt.Equal(sess.ExpiresAt))
		require.NotNil(t, got.Device)
		assert.Equal(t, *sess.Device, *got.Device)

		_, err = s.FindByUserAndSession(ctx, "u2", "sid-1")
		assert.ErrorIs(t, err, session.ErrNotFound)

		require.NoError(t, s.DeleteBySession(ctx, "sid-1"))
		require.NoError(t, s.DeleteBySession(ctx, "sid-1"))
		_, err = s.FindByUserAndSession(ctx, "u1", "sid-1")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("find all and delete all", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Save(ctx, NewSession("u1", "b", Base.Add(time.Minute))))
		require.NoError(t, s.Save(ctx, NewSession("u1", "a", Base)))
		require.NoError(t, s.Save(ctx, NewSession("u2", "c", Base)))

		all, err := s.FindAllByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "a", all[0].SessionID)
		assert.Equal(t, "b", all[1].SessionID)

		removed, err := s.DeleteAllByUser(ctx, "u1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, removed)

		all, err = s.FindAllByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, all)

		_, err = s.FindByUserAndSession(ctx, "u2", "c")
		assert.NoError(t, err)
	})

	t.Run("rotate is single use", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Save(ctx, NewSession("u1", "old", Base)))

		require.NoError(t, s.Rotate(ctx, "old", NewSession("u1", "new", Base.Add(time.Minute))))
		_, err := s.FindByUserAndSession(ctx, "u1", "old")
		assert.ErrorIs(t, err, session.ErrNotFound)
		_, err = s.FindByUserAndSession(ctx, "u1", "new")
		require.NoError(t, err)

		err = s.Rotate(ctx, "old", NewSession("u1", "newer", Base.Add(2*time.Minute)))
		assert.ErrorIs(t, err, session.ErrNotFound)
		_, err = s.FindByUserAndSession(ctx, "u1", "newer")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("concurrent rotation has one winner", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Save(ctx, NewSession("u1", "old", Base)))

		const workers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				next := NewSession("u1", uuid.NewString(), Base.Add(time.Duration(i)*time.Second))
				if err := s.Rotate(ctx, "old", next); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
		all, err := s.FindAllByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

// RunTransactor checks commit and rollback of a user insert paired with a
// session insert.
func RunTransactor(t *testing.T, newStore func(t *testing.T) (Transactor, user.Store, session.Store)) {
	t.Run("commit", func(t *testing.T) {
		ctx := context.Background()
		tx, users, sessions := newStore(t)
		u := NewUser("erin")
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := users.Create(ctx, u); err != nil {
				return err
			}
			return sessions.Save(ctx, NewSession(u.ID, "tx-commit", Base))
		})
		require.NoError(t, err)

		_, err = users.GetByUsername(ctx, "erin")
		require.NoError(t, err)
		_, err = sessions.FindByUserAndSession(ctx, u.ID, "tx-commit")
		require.NoError(t, err)
	})

	t.Run("rollback", func(t *testing.T) {
		ctx := context.Background()
		tx, users, sessions := newStore(t)
		u := NewUser("frank")
		boom := errors.New("boom")
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := users.Create(ctx, u); err != nil {
				return err
			}
			if err := sessions.Save(ctx, NewSession(u.ID, "tx-rollback", Base)); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = users.GetByUsername(ctx, "frank")
		assert.ErrorIs(t, err, user.ErrNotFound)
		_, err = sessions.FindByUserAndSession(ctx, u.ID, "tx-rollback")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})
}
