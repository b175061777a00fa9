package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/session"
)

const sessionColumns = `id, user_id, session_id, expires_at, created_at, has_device,
		device_os, device_mobile, device_browser, device_app_version, device_model`

// Save inserts a session row.
func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	return s.insertSession(ctx, s.conn(ctx), sess)
}

func (s *Store) insertSession(ctx context.Context, db DBTX, sess *session.Session) error {
	var d session.Device
	if sess.Device != nil {
		d = *sess.Device
	}
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, s.rebind(query),
		sess.ID,
		sess.UserID,
		sess.SessionID,
		sess.ExpiresAt.UnixMilli(),
		sess.CreatedAt.UnixMilli(),
		sess.Device != nil,
		d.OS,
		d.IsMobile,
		d.Browser,
		d.AppVersion,
		d.Model,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// FindByUserAndSession loads the row owned by userID.
func (s *Store) FindByUserAndSession(ctx context.Context, userID, sessionID string) (*session.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_id = ? AND user_id = ?`
	rows, err := s.conn(ctx).QueryContext(ctx, s.rebind(query), sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		return nil, session.ErrNotFound
	}
	return scanSession(rows)
}

// FindAllByUser returns the user's rows ordered by creation.
func (s *Store) FindAllByUser(ctx context.Context, userID string) ([]*session.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = ? ORDER BY created_at, session_id`
	rows, err := s.conn(ctx).QueryContext(ctx, s.rebind(query), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return out, nil
}

// DeleteBySession removes one row. Missing rows are a no-op.
func (s *Store) DeleteBySession(ctx context.Context, sessionID string) error {
	query := `DELETE FROM sessions WHERE session_id = ?`
	if _, err := s.conn(ctx).ExecContext(ctx, s.rebind(query), sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteAllByUser removes the user's rows and returns their session ids.
func (s *Store) DeleteAllByUser(ctx context.Context, userID string) ([]string, error) {
	query := `DELETE FROM sessions WHERE user_id = ? RETURNING session_id`
	rows, err := s.conn(ctx).QueryContext(ctx, s.rebind(query), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to delete sessions: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return ids, nil
}

// Rotate deletes oldSessionID and inserts next in one transaction. When the
// old row is already gone nothing is written and session.ErrNotFound is
// returned.
func (s *Store) Rotate(ctx context.Context, oldSessionID string, next *session.Session) error {
	return s.WithinTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		res, err := db.ExecContext(ctx, s.rebind(`DELETE FROM sessions WHERE session_id = ?`), oldSessionID)
		if err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		if n == 0 {
			return session.ErrNotFound
		}
		return s.insertSession(ctx, db, next)
	})
}

func scanSession(rows *sql.Rows) (*session.Session, error) {
	var (
		sess             session.Session
		d                session.Device
		hasDevice        bool
		expires, created int64
	)
	err := rows.Scan(
		&sess.ID,
		&sess.UserID,
		&sess.SessionID,
		&expires,
		&created,
		&hasDevice,
		&d.OS,
		&d.IsMobile,
		&d.Browser,
		&d.AppVersion,
		&d.Model,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	sess.ExpiresAt = time.UnixMilli(expires).UTC()
	sess.CreatedAt = time.UnixMilli(created).UTC()
	if hasDevice {
		sess.Device = &d
	}
	return &sess, nil
}
