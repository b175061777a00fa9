package authcore

import "context"

// SetPassword replaces an expired password. It returns ErrPasswordNotExpired
// when the current password is still valid.
func (e *Engine) SetPassword(ctx context.Context, userID, newPassword string) error {
	return e.flows.SetPassword(ctx, userID, newPassword)
}

// UpdatePassword changes the password after checking the current one.
func (e *Engine) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	return e.flows.UpdatePassword(ctx, userID, currentPassword, newPassword)
}
