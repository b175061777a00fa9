package authcore

import "context"

// Account returns the credential posture of userID.
func (e *Engine) Account(ctx context.Context, userID string) (*AccountInfo, error) {
	return e.flows.Account(ctx, userID)
}
