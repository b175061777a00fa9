package authcore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/authcore/clock"
	"github.com/MrEthical07/authcore/internal/activity"
	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/user"
)

// Engine runs the credential and session lifecycle. It is safe for
// concurrent use; every method that touches a store takes a context.
type Engine struct {
	config   Config
	users    user.Store
	sessions session.Store
	tokens   *jwt.Manager
	hasher   *password.Argon2
	totp     *totpManager
	activity *activity.Cache
	audit    *internalaudit.Dispatcher
	metrics  *Metrics
	clock    clock.Clock
	logger   *slog.Logger
	flows    flows.Service

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type engineParts struct {
	users     user.Store
	sessions  session.Store
	tx        Transactor
	clock     clock.Clock
	logger    *slog.Logger
	auditSink AuditSink
}

func newEngine(cfg Config, parts engineParts) (*Engine, error) {
	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Clock:         parts.clock,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:   cfg,
		users:    parts.users,
		sessions: parts.sessions,
		tokens:   tokens,
		hasher:   hasher,
		totp:     newTOTPManager(cfg.TOTP, parts.clock),
		activity: activity.New(),
		metrics:  NewMetrics(cfg.Metrics),
		clock:    parts.clock,
		logger:   parts.logger,
		stop:     make(chan struct{}),
	}
	e.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, parts.auditSink)

	var tx flows.Transactor
	if parts.tx != nil {
		tx = parts.tx
	}
	e.flows = flows.New(e.flowDeps(tx))

	if cfg.Activity.SweepInterval > 0 {
		e.wg.Add(1)
		go e.janitor(cfg.Activity.SweepInterval)
	}

	return e, nil
}

func (e *Engine) flowDeps(tx flows.Transactor) flows.Deps {
	return flows.Deps{
		Users:    e.users,
		Sessions: e.sessions,
		Tx:       tx,
		Clock:    e.clock,
		Tokens:   e.tokens,
		Hasher:   e.hasher,
		OTP:      e.totp,
		Activity: e.activity,

		MinPasswordLength: e.config.Policy.MinPasswordLength,
		RecoveryCodeCount: e.config.Policy.RecoveryCodeCount,
		UpgradeOnLogin:    e.config.Password.UpgradeOnLogin,

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,
		Logger:    e.logger,

		Metrics: flows.Metrics{
			SignupSuccess:         int(MetricSignupSuccess),
			SignupFailure:         int(MetricSignupFailure),
			LoginSuccess:          int(MetricLoginSuccess),
			LoginFailure:          int(MetricLoginFailure),
			LoginOTPRequired:      int(MetricLoginOTPRequired),
			OTPValidateSuccess:    int(MetricOTPValidateSuccess),
			OTPValidateFailure:    int(MetricOTPValidateFailure),
			OTPGenerated:          int(MetricOTPGenerated),
			OTPVerified:           int(MetricOTPVerified),
			OTPVerifyFailure:      int(MetricOTPVerifyFailure),
			OTPDisabled:           int(MetricOTPDisabled),
			RefreshSuccess:        int(MetricRefreshSuccess),
			RefreshFailure:        int(MetricRefreshFailure),
			RefreshExpired:        int(MetricRefreshExpired),
			Logout:                int(MetricLogout),
			LogoutAll:             int(MetricLogoutAll),
			RecoverySuccess:       int(MetricRecoverySuccess),
			RecoveryFailure:       int(MetricRecoveryFailure),
			RecoveryCodeConsumed:  int(MetricRecoveryCodeConsumed),
			PasswordSet:           int(MetricPasswordSet),
			PasswordUpdate:        int(MetricPasswordUpdate),
			PasswordChangeFailure: int(MetricPasswordChangeFailure),
			PasswordRehash:        int(MetricPasswordRehash),
			SessionCreated:        int(MetricSessionCreated),
			SessionInvalidated:    int(MetricSessionInvalidated),
			AuthenticateSuccess:   int(MetricAuthenticateSuccess),
			AuthenticateFailure:   int(MetricAuthenticateFailure),
		},
		Events: flowEvents(),
		Errors: flows.Errors{
			InvalidCredentials:                      ErrInvalidCredentials,
			UserNotFound:                            ErrUserNotFound,
			UserAlreadyExists:                       ErrUserAlreadyExists,
			InvalidOtp:                              ErrInvalidOtp,
			OtpNotEnabled:                           ErrOtpNotEnabled,
			TwoFactorAuthenticationNotEnabled:       ErrTwoFactorAuthenticationNotEnabled,
			InvalidUsernameOrRecoveryCode:           ErrInvalidUsernameOrRecoveryCode,
			InvalidUsernameOrPasswordOrRecoveryCode: ErrInvalidUsernameOrPasswordOrRecoveryCode,
			InvalidUsernameOrCodeOrRecoveryCode:     ErrInvalidUsernameOrCodeOrRecoveryCode,
			TokenExpired:                            ErrTokenExpired,
			InvalidToken:                            ErrInvalidToken,
			PasswordExpired:                         ErrPasswordExpired,
			PasswordNotExpired:                      ErrPasswordNotExpired,
			InvalidPassword:                         ErrInvalidPassword,
			UsernameInvalid:                         ErrUsernameInvalid,
			Internal:                                e.internalError,
			Known:                                   isEngineError,
		},
	}
}

// Close stops the activity janitor and drains the audit dispatcher. Stores
// are owned by the caller and stay open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		close(e.stop)
		e.wg.Wait()
		if e.audit != nil {
			e.audit.Close()
		}
	})
}

// AuditDropped reports how many audit events were dropped because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// ActivityEntries reports how many sessions the last-seen cache tracks.
func (e *Engine) ActivityEntries() int {
	if e == nil || e.activity == nil {
		return 0
	}
	return e.activity.Len()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// SweepActivity drops activity entries whose session deadline has passed
// and returns how many were removed.
func (e *Engine) SweepActivity() int {
	return e.activity.Sweep(e.clock.Now())
}

func (e *Engine) janitor(every time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := e.SweepActivity(); n > 0 {
				e.logger.LogAttrs(context.Background(), slog.LevelDebug, "activity sweep", slog.Int("removed", n))
			}
		case <-e.stop:
			return
		}
	}
}
