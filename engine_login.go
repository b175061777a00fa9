package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/internal/flows"
)

// Signup creates an account and its first session. The username is
// case-folded before it is checked and stored. The returned recovery codes
// are not retrievable again.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	return e.flows.Signup(ctx, flows.SignupRequest{
		Username: req.Username,
		Password: req.Password,
		Device:   req.Device,
	})
}

// Login verifies a username and password. For OTP-enrolled users it returns
// a result with OTPRequired set and no tokens; finish with ValidateLoginOTP.
// Login never revokes the user's other sessions.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	return e.flows.Login(ctx, flows.LoginRequest{
		Username: req.Username,
		Password: req.Password,
		Device:   req.Device,
	})
}

// ValidateLoginOTP completes an OTP-gated login.
func (e *Engine) ValidateLoginOTP(ctx context.Context, userID, code string, device *Device) (*TokenPair, error) {
	return e.flows.ValidateLoginOTP(ctx, userID, code, device)
}
