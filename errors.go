package authcore

import "errors"

// Code is the stable, machine-readable identifier of an engine error. The
// HTTP layer maps codes to status codes.
type Code string

const (
	CodeInvalidCredentials                      Code = "invalid_credentials"
	CodeUserNotFound                            Code = "user_not_found"
	CodeUserAlreadyExists                       Code = "user_already_exists"
	CodeInvalidOtp                              Code = "invalid_otp"
	CodeOtpNotEnabled                           Code = "otp_not_enabled"
	CodeTwoFactorAuthenticationNotEnabled       Code = "two_factor_authentication_not_enabled"
	CodeInvalidUsernameOrRecoveryCode           Code = "invalid_username_or_recovery_code"
	CodeInvalidUsernameOrPasswordOrRecoveryCode Code = "invalid_username_or_password_or_recovery_code"
	CodeInvalidUsernameOrCodeOrRecoveryCode     Code = "invalid_username_or_code_or_recovery_code"
	CodeTokenExpired                            Code = "token_expired"
	CodeInvalidToken                            Code = "invalid_token"
	CodePasswordExpired                         Code = "password_expired"
	CodePasswordNotExpired                      Code = "password_not_expired"
	CodeInvalidPassword                         Code = "invalid_password"
	CodeUsernameInvalid                         Code = "username_invalid"
	CodeInternal                                Code = "internal_error"
)

// Error is a code and a caller-safe message. Two errors match under
// errors.Is when their codes are equal. Internal errors never carry the
// text of the underlying storage or crypto failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid username or password"}
	ErrUserNotFound       = &Error{Code: CodeUserNotFound, Message: "user not found"}
	ErrUserAlreadyExists  = &Error{Code: CodeUserAlreadyExists, Message: "username is already taken"}
	ErrInvalidOtp         = &Error{Code: CodeInvalidOtp, Message: "invalid one-time password"}
	ErrOtpNotEnabled      = &Error{Code: CodeOtpNotEnabled, Message: "one-time password is not enabled"}
	// ErrTwoFactorAuthenticationNotEnabled is returned by the recovery flows
	// that require a verified OTP enrollment.
	ErrTwoFactorAuthenticationNotEnabled = &Error{
		Code:    CodeTwoFactorAuthenticationNotEnabled,
		Message: "two-factor authentication is not enabled",
	}
	ErrInvalidUsernameOrRecoveryCode = &Error{
		Code:    CodeInvalidUsernameOrRecoveryCode,
		Message: "invalid username or recovery code",
	}
	ErrInvalidUsernameOrPasswordOrRecoveryCode = &Error{
		Code:    CodeInvalidUsernameOrPasswordOrRecoveryCode,
		Message: "invalid username, password or recovery code",
	}
	ErrInvalidUsernameOrCodeOrRecoveryCode = &Error{
		Code:    CodeInvalidUsernameOrCodeOrRecoveryCode,
		Message: "invalid username, one-time password or recovery code",
	}
	ErrTokenExpired       = &Error{Code: CodeTokenExpired, Message: "token has expired"}
	ErrInvalidToken       = &Error{Code: CodeInvalidToken, Message: "invalid token"}
	ErrPasswordExpired    = &Error{Code: CodePasswordExpired, Message: "password has expired and must be reset"}
	ErrPasswordNotExpired = &Error{Code: CodePasswordNotExpired, Message: "password has not expired"}
	ErrInvalidPassword    = &Error{Code: CodeInvalidPassword, Message: "invalid password"}
	ErrUsernameInvalid    = &Error{Code: CodeUsernameInvalid, Message: "invalid username"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

func isEngineError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
