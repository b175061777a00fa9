package middleware

import "net/http"

// RequireStrict is Guard with a session store lookup on every request.
func RequireStrict(engine Authenticator) func(http.Handler) http.Handler {
	if engine == nil {
		return guard(nil)
	}
	return guard(engine.AuthenticateSession)
}
