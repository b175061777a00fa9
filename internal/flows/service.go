package flows

import (
	"context"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/session"
)

// Service is the flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	normalizeDeps(&deps)
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with its stores.
func (s Service) Initialized() bool {
	return s.deps.Users != nil && s.deps.Sessions != nil && s.deps.Tokens != nil
}

func (s Service) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	return RunSignup(ctx, req, s.deps)
}

func (s Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	return RunLogin(ctx, req, s.deps)
}

func (s Service) ValidateLoginOTP(ctx context.Context, userID, code string, device *session.Device) (*TokenPair, error) {
	return RunValidateLoginOTP(ctx, userID, code, device, s.deps)
}

func (s Service) GenerateOTP(ctx context.Context, userID string) (*OTPEnrollment, error) {
	return RunGenerateOTP(ctx, userID, s.deps)
}

func (s Service) VerifyOTP(ctx context.Context, userID, code string) error {
	return RunVerifyOTP(ctx, userID, code, s.deps)
}

func (s Service) DisableOTP(ctx context.Context, userID string) error {
	return RunDisableOTP(ctx, userID, s.deps)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return RunRefresh(ctx, refreshToken, s.deps)
}

func (s Service) Logout(ctx context.Context, sessionID string) error {
	return RunLogout(ctx, sessionID, s.deps)
}

func (s Service) LogoutAll(ctx context.Context, userID string) (int, error) {
	return RunLogoutAll(ctx, userID, s.deps)
}

func (s Service) ListSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	return RunListSessions(ctx, userID, s.deps)
}

func (s Service) Authenticate(ctx context.Context, accessToken string) (*jwt.Claims, error) {
	return RunAuthenticate(ctx, accessToken, s.deps)
}

func (s Service) AuthenticateSession(ctx context.Context, accessToken string) (*jwt.Claims, error) {
	return RunAuthenticateSession(ctx, accessToken, s.deps)
}

func (s Service) RecoverWithoutOTP(ctx context.Context, req RecoveryRequest) (*TokenPair, error) {
	return RunRecoverWithoutOTP(ctx, req, s.deps)
}

func (s Service) RecoverUsingPassword(ctx context.Context, req RecoveryRequest) (*TokenPair, error) {
	return RunRecoverUsingPassword(ctx, req, s.deps)
}

func (s Service) RecoverUsingOTP(ctx context.Context, req RecoveryRequest) (*TokenPair, error) {
	return RunRecoverUsingOTP(ctx, req, s.deps)
}

func (s Service) SetPassword(ctx context.Context, userID, newPassword string) error {
	return RunSetPassword(ctx, userID, newPassword, s.deps)
}

func (s Service) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	return RunUpdatePassword(ctx, userID, currentPassword, newPassword, s.deps)
}

func (s Service) Account(ctx context.Context, userID string) (*AccountInfo, error) {
	return RunAccount(ctx, userID, s.deps)
}
