package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/user"
)

const userColumns = `id, username, password_hash, otp_secret, otp_enrollment_uri, otp_verified,
		recovery_codes, password_expired, is_admin, version, created_at, updated_at`

// Create inserts u. A taken username or id maps to user.ErrAlreadyExists.
func (s *Store) Create(ctx context.Context, u *user.User) error {
	codes, err := json.Marshal(nonNil(u.RecoveryCodes))
	if err != nil {
		return fmt.Errorf("encode recovery codes: %w", err)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.conn(ctx).ExecContext(ctx, s.rebind(query),
		u.ID,
		u.Username,
		u.PasswordHash,
		nullString(u.OTPSecret),
		nullString(u.OTPEnrollmentURI),
		u.OTPVerified,
		string(codes),
		u.PasswordExpired,
		u.IsAdmin,
		u.Version,
		u.CreatedAt.UnixMilli(),
		u.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByID loads a user by id.
func (s *Store) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return s.scanUser(s.conn(ctx).QueryRowContext(ctx, s.rebind(query), id))
}

// GetByUsername loads a user by its lowercased username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return s.scanUser(s.conn(ctx).QueryRowContext(ctx, s.rebind(query), username))
}

// Update writes every mutable column when the stored version still equals
// u.Version, then bumps u.Version. A lost race returns user.ErrConflict.
func (s *Store) Update(ctx context.Context, u *user.User) error {
	codes, err := json.Marshal(nonNil(u.RecoveryCodes))
	if err != nil {
		return fmt.Errorf("encode recovery codes: %w", err)
	}

	query := `
		UPDATE users
		SET username = ?, password_hash = ?, otp_secret = ?, otp_enrollment_uri = ?,
		    otp_verified = ?, recovery_codes = ?, password_expired = ?, is_admin = ?,
		    version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`
	res, err := s.conn(ctx).ExecContext(ctx, s.rebind(query),
		u.Username,
		u.PasswordHash,
		nullString(u.OTPSecret),
		nullString(u.OTPEnrollmentURI),
		u.OTPVerified,
		string(codes),
		u.PasswordExpired,
		u.IsAdmin,
		u.Version+1,
		u.UpdatedAt.UnixMilli(),
		u.ID,
		u.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n == 0 {
		if _, err := s.GetByID(ctx, u.ID); err != nil {
			return err
		}
		return user.ErrConflict
	}
	u.Version++
	return nil
}

func (s *Store) scanUser(row *sql.Row) (*user.User, error) {
	var (
		u                user.User
		secret, uri      sql.NullString
		codes            string
		created, updated int64
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&secret,
		&uri,
		&u.OTPVerified,
		&codes,
		&u.PasswordExpired,
		&u.IsAdmin,
		&u.Version,
		&created,
		&updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := json.Unmarshal([]byte(codes), &u.RecoveryCodes); err != nil {
		return nil, fmt.Errorf("decode recovery codes: %w", err)
	}
	u.OTPSecret = secret.String
	u.OTPEnrollmentURI = uri.String
	u.CreatedAt = time.UnixMilli(created).UTC()
	u.UpdatedAt = time.UnixMilli(updated).UTC()
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(codes []string) []string {
	if codes == nil {
		return []string{}
	}
	return codes
}
