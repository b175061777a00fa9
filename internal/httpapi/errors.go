package httpapi

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore"
)

var statusByCode = map[authcore.Code]int{
	authcore.CodeInvalidCredentials:                      http.StatusUnauthorized,
	authcore.CodeUserNotFound:                            http.StatusNotFound,
	authcore.CodeUserAlreadyExists:                       http.StatusConflict,
	authcore.CodeInvalidOtp:                              http.StatusUnauthorized,
	authcore.CodeOtpNotEnabled:                           http.StatusConflict,
	authcore.CodeTwoFactorAuthenticationNotEnabled:       http.StatusConflict,
	authcore.CodeInvalidUsernameOrRecoveryCode:           http.StatusUnauthorized,
	authcore.CodeInvalidUsernameOrPasswordOrRecoveryCode: http.StatusUnauthorized,
	authcore.CodeInvalidUsernameOrCodeOrRecoveryCode:     http.StatusUnauthorized,
	authcore.CodeTokenExpired:                            http.StatusUnauthorized,
	authcore.CodeInvalidToken:                            http.StatusUnauthorized,
	authcore.CodePasswordExpired:                         http.StatusForbidden,
	authcore.CodePasswordNotExpired:                      http.StatusConflict,
	authcore.CodeInvalidPassword:                         http.StatusBadRequest,
	authcore.CodeUsernameInvalid:                         http.StatusBadRequest,
	authcore.CodeInternal:                                http.StatusInternalServerError,
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusFor maps an engine error to its HTTP status. Anything that is not
// an engine error is a 500.
func StatusFor(err error) int {
	var engineErr *authcore.Error
	if errors.As(err, &engineErr) {
		if status, ok := statusByCode[engineErr.Code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	var engineErr *authcore.Error
	if !errors.As(err, &engineErr) {
		engineErr = authcore.ErrInternal
	}
	writeJSON(w, StatusFor(engineErr), errorBody{
		Error:   string(engineErr.Code),
		Message: engineErr.Message,
	})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: message})
}
