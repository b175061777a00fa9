package jwt

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/clock"
	"github.com/golang-jwt/jwt/v5"
)

// Kind selects which of the two token variants is being issued or decoded.
type Kind string

const (
	// KindAccess is the short-lived bearer token presented on API calls.
	KindAccess Kind = "access"
	// KindRefresh is the long-lived token exchanged for a new pair.
	KindRefresh Kind = "refresh"
)

const minSecretBytes = 32

var (
	// ErrMalformed is returned when a token fails signature or structural checks.
	ErrMalformed = errors.New("malformed token")
	// ErrWrongKind is returned when a token of one Kind is decoded as the other.
	ErrWrongKind = errors.New("token kind mismatch")
)

// Config holds the two HMAC secrets and the expiry horizons.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Clock         clock.Clock
}

// Claims is the signed payload shared by access and refresh tokens. The
// registered jti is the session id.
type Claims struct {
	UserID  string `json:"uid"`
	IsAdmin bool   `json:"adm,omitempty"`
	Kind    Kind   `json:"typ"`
	jwt.RegisteredClaims
}

// SessionID returns the jti.
func (c *Claims) SessionID() string {
	return c.ID
}

// Expired reports whether now is at or past exp. Tokens without exp are expired.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

// Manager signs and decodes HS256 tokens. Expiry is never enforced by Decode;
// callers compare Claims.Expired against their own clock.
type Manager struct {
	config Config
	parser *jwt.Parser
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must not be shorter than access TTL")
	}
	if len(cfg.AccessSecret) < minSecretBytes || len(cfg.RefreshSecret) < minSecretBytes {
		return nil, fmt.Errorf("signing secrets must be at least %d bytes", minSecretBytes)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}

	return &Manager{
		config: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// TTL returns the configured lifetime for kind.
func (m *Manager) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return m.config.RefreshTTL
	}
	return m.config.AccessTTL
}

// Issue stamps iat/exp from the clock, sets typ to kind and signs claims
// with the kind's secret. The caller supplies UserID, IsAdmin and the jti.
func (m *Manager) Issue(claims Claims, kind Kind) (string, error) {
	if claims.ID == "" || claims.UserID == "" {
		return "", errors.New("claims require session id and user id")
	}
	now := m.config.Clock.Now()

	claims.Kind = kind
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.TTL(kind)))
	if m.config.Issuer != "" {
		claims.Issuer = m.config.Issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret(kind))
}

// Decode verifies the signature and structure of a token of the given kind.
// It does not look at exp.
func (m *Manager) Decode(tokenStr string, kind Kind) (*Claims, error) {
	claims := &Claims{}
	token, err := m.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.secret(kind), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !token.Valid {
		return nil, ErrMalformed
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	if claims.ID == "" || claims.UserID == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing required claims", ErrMalformed)
	}
	if m.config.Issuer != "" && claims.Issuer != m.config.Issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrMalformed)
	}
	return claims, nil
}

func (m *Manager) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return m.config.RefreshSecret
	}
	return m.config.AccessSecret
}

// HashSessionID returns a hex SHA-256 fingerprint of a session id for log
// and audit correlation. It is not a security boundary.
func HashSessionID(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:])
}
