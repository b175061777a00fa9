package flows

import "context"

// RunAccount returns the credential posture of userID.
func RunAccount(ctx context.Context, userID string, deps Deps) (*AccountInfo, error) {
	normalizeDeps(&deps)

	u, err := loadUser(ctx, "account", userID, deps.Errors.UserNotFound, &deps)
	if err != nil {
		return nil, err
	}
	return &AccountInfo{
		UserID:                 u.ID,
		Username:               u.Username,
		Posture:                u.Posture(),
		PasswordExpired:        u.PasswordExpired,
		IsAdmin:                u.IsAdmin,
		RecoveryCodesRemaining: len(u.RecoveryCodes),
		CreatedAt:              u.CreatedAt,
	}, nil
}
