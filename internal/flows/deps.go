package flows

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrEthical07/authcore/clock"
	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/user"
	"github.com/google/uuid"
)

// TokenIssuer signs and decodes the access/refresh pair.
type TokenIssuer interface {
	Issue(claims jwt.Claims, kind jwt.Kind) (string, error)
	Decode(token string, kind jwt.Kind) (*jwt.Claims, error)
	TTL(kind jwt.Kind) time.Duration
}

// Hasher is the argon2id verifier used for passwords and recovery codes.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) bool
	NeedsUpgrade(encoded string) bool
}

// OTP generates enrollment secrets and checks codes at the current time.
type OTP interface {
	GenerateSecret(account string) (secret, uri string, err error)
	Check(secret, code string) bool
}

// ActivityCache records last-seen times per session id. It is advisory.
type ActivityCache interface {
	Touch(sessionID string, at, expiresAt time.Time)
	TouchIfPresent(sessionID string, at time.Time) bool
	Remove(sessionIDs ...string)
	Get(sessionID string) (time.Time, bool)
}

// Transactor runs fn so that every store write made with the ctx it
// receives commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics maps flow outcomes onto the engine's counter IDs.
type Metrics struct {
	SignupSuccess         int
	SignupFailure         int
	LoginSuccess          int
	LoginFailure          int
	LoginOTPRequired      int
	OTPValidateSuccess    int
	OTPValidateFailure    int
	OTPGenerated          int
	OTPVerified           int
	OTPVerifyFailure      int
	OTPDisabled           int
	RefreshSuccess        int
	RefreshFailure        int
	RefreshExpired        int
	Logout                int
	LogoutAll             int
	RecoverySuccess       int
	RecoveryFailure       int
	RecoveryCodeConsumed  int
	PasswordSet           int
	PasswordUpdate        int
	PasswordChangeFailure int
	PasswordRehash        int
	SessionCreated        int
	SessionInvalidated    int
	AuthenticateSuccess   int
	AuthenticateFailure   int
}

// Events names the audit event emitted for each outcome.
type Events struct {
	SignupSuccess      string
	SignupFailure      string
	LoginSuccess       string
	LoginFailure       string
	LoginOTPRequired   string
	OTPLoginSuccess    string
	OTPLoginFailure    string
	OTPGenerated       string
	OTPVerified        string
	OTPVerifyFailure   string
	OTPDisabled        string
	RefreshSuccess     string
	RefreshInvalid     string
	RefreshExpired     string
	LogoutSession      string
	LogoutAll          string
	RecoverySuccess    string
	RecoveryFailure    string
	PasswordSet        string
	PasswordUpdate     string
	PasswordFailure    string
	PasswordRehashFail string
}

// Errors carries the caller-facing error values. Internal converts an
// unexpected cause into the opaque internal error; Known reports whether an
// error is already caller-facing.
type Errors struct {
	InvalidCredentials                      error
	UserNotFound                            error
	UserAlreadyExists                       error
	InvalidOtp                              error
	OtpNotEnabled                           error
	TwoFactorAuthenticationNotEnabled       error
	InvalidUsernameOrRecoveryCode           error
	InvalidUsernameOrPasswordOrRecoveryCode error
	InvalidUsernameOrCodeOrRecoveryCode     error
	TokenExpired                            error
	InvalidToken                            error
	PasswordExpired                         error
	PasswordNotExpired                      error
	InvalidPassword                         error
	UsernameInvalid                         error

	Internal func(op string, err error) error
	Known    func(error) bool
}

// Deps is built once by the engine and shared by every flow.
type Deps struct {
	Users    user.Store
	Sessions session.Store
	Tx       Transactor
	Clock    clock.Clock
	Tokens   TokenIssuer
	Hasher   Hasher
	OTP      OTP
	Activity ActivityCache

	MinPasswordLength int
	RecoveryCodeCount int
	UpgradeOnLogin    bool
	// MaxConflictRetries bounds re-evaluation after an optimistic-lock loss.
	MaxConflictRetries int

	NewSessionID     func() (string, error)
	NewRecoveryCodes func(int) ([]string, error)
	NewID            func() string

	MetricInc func(int)
	EmitAudit func(ctx context.Context, eventType string, success bool, userID, sessionID string, err error, metadata func() map[string]string)
	Logger    *slog.Logger

	Metrics Metrics
	Events  Events
	Errors  Errors
}

type noTx struct{}

func (noTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type noActivity struct{}

func (noActivity) Touch(string, time.Time, time.Time)    {}
func (noActivity) TouchIfPresent(string, time.Time) bool { return false }
func (noActivity) Remove(...string)                      {}
func (noActivity) Get(string) (time.Time, bool)          { return time.Time{}, false }

func normalizeDeps(deps *Deps) {
	if deps.Tx == nil {
		deps.Tx = noTx{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Activity == nil {
		deps.Activity = noActivity{}
	}
	if deps.RecoveryCodeCount <= 0 {
		deps.RecoveryCodeCount = 5
	}
	if deps.MaxConflictRetries <= 0 {
		deps.MaxConflictRetries = 3
	}
	if deps.NewSessionID == nil {
		deps.NewSessionID = internal.NewSessionID
	}
	if deps.NewRecoveryCodes == nil {
		deps.NewRecoveryCodes = internal.NewRecoveryCodes
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Errors.Internal == nil {
		deps.Errors.Internal = func(_ string, err error) error { return err }
	}
	if deps.Errors.Known == nil {
		deps.Errors.Known = func(error) bool { return false }
	}
}
