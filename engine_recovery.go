package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/internal/flows"
)

// RecoverWithoutOTP redeems a recovery code for a user without a working
// second factor. All sessions are revoked, the code is spent, and the
// password is marked expired so the next step must be SetPassword.
func (e *Engine) RecoverWithoutOTP(ctx context.Context, req RecoveryRequest) (*TokenPair, error) {
	return e.flows.RecoverWithoutOTP(ctx, toFlowRecovery(req))
}

// RecoverUsingPassword redeems a recovery code together with the password
// and turns OTP off. All sessions are revoked. The password stays valid.
func (e *Engine) RecoverUsingPassword(ctx context.Context, req RecoveryRequest) (*TokenPair, error) {
	return e.flows.RecoverUsingPassword(ctx, toFlowRecovery(req))
}

// RecoverUsingOTP redeems a recovery code together with a current OTP
// code. All sessions are revoked and the password is marked expired.
func (e *Engine) RecoverUsingOTP(ctx context.Context, req RecoveryRequest) (*TokenPair, error) {
	return e.flows.RecoverUsingOTP(ctx, toFlowRecovery(req))
}

func toFlowRecovery(req RecoveryRequest) flows.RecoveryRequest {
	return flows.RecoveryRequest{
		Username:     req.Username,
		Password:     req.Password,
		OTP:          req.OTP,
		RecoveryCode: req.RecoveryCode,
		Device:       req.Device,
	}
}
