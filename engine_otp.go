package authcore

import "context"

// GenerateOTP creates a new pending TOTP secret for userID, replacing any
// previous one. Login keeps working on the password alone until VerifyOTP.
func (e *Engine) GenerateOTP(ctx context.Context, userID string) (*OTPEnrollment, error) {
	return e.flows.GenerateOTP(ctx, userID)
}

// VerifyOTP confirms the pending secret with a current code.
func (e *Engine) VerifyOTP(ctx context.Context, userID, code string) error {
	return e.flows.VerifyOTP(ctx, userID, code)
}

// DisableOTP removes the secret. Existing sessions are kept.
func (e *Engine) DisableOTP(ctx context.Context, userID string) error {
	return e.flows.DisableOTP(ctx, userID)
}
