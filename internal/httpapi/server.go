package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
)

const maxBodyBytes = 1 << 16

// Options configures a Server. Zero values are usable.
type Options struct {
	Logger *slog.Logger
	// Metrics is mounted on GET /metrics when set.
	Metrics http.Handler
	// StrictSessions makes authenticated routes check the session store, so
	// logout takes effect before the access token expires.
	StrictSessions bool
}

// Server routes HTTP requests to an Engine.
type Server struct {
	engine *authcore.Engine
	logger *slog.Logger
	mux    *http.ServeMux
}

// New wires every route.
func New(engine *authcore.Engine, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{engine: engine, logger: logger, mux: http.NewServeMux()}

	auth := middleware.Guard(engine)
	if opts.StrictSessions {
		auth = middleware.RequireStrict(engine)
	}
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }

	s.mux.HandleFunc("POST /signup", s.signup)
	s.mux.HandleFunc("POST /login", s.login)
	s.mux.HandleFunc("POST /login/otp", s.loginOTP)
	s.mux.HandleFunc("POST /token/refresh", s.refresh)
	s.mux.HandleFunc("POST /recover/basic", s.recoverWith(engine.RecoverWithoutOTP))
	s.mux.HandleFunc("POST /recover/password", s.recoverWith(engine.RecoverUsingPassword))
	s.mux.HandleFunc("POST /recover/otp", s.recoverWith(engine.RecoverUsingOTP))

	s.mux.Handle("POST /otp", protected(s.generateOTP))
	s.mux.Handle("POST /otp/verify", protected(s.verifyOTP))
	s.mux.Handle("DELETE /otp", protected(s.disableOTP))
	s.mux.Handle("POST /logout", protected(s.logout))
	s.mux.Handle("POST /logout/all", protected(s.logoutAll))
	s.mux.Handle("GET /sessions", protected(s.sessions))
	s.mux.Handle("GET /account", protected(s.account))
	s.mux.Handle("POST /password/set", protected(s.setPassword))
	s.mux.Handle("POST /password/update", protected(s.updatePassword))

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		s.mux.Handle("GET /metrics", opts.Metrics)
	}
	return s
}

// ServeHTTP attaches the client IP for audit and logs each request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	r = r.WithContext(authcore.WithClientIP(r.Context(), clientIP(r)))

	s.mux.ServeHTTP(rec, r)

	s.logger.LogAttrs(r.Context(), slog.LevelInfo, "http request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", rec.status),
		slog.Duration("elapsed", time.Since(start)),
	)
}

/* ---- public routes ---- */

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if !decode(w, r, &body) {
		return
	}
	res, err := s.engine.Signup(r.Context(), authcore.SignupRequest{
		Username: body.Username,
		Password: body.Password,
		Device:   deviceFromRequest(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if !decode(w, r, &body) {
		return
	}
	res, err := s.engine.Login(r.Context(), authcore.LoginRequest{
		Username: body.Username,
		Password: body.Password,
		Device:   deviceFromRequest(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) loginOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
		Code   string `json:"code"`
	}
	if !decode(w, r, &body) {
		return
	}
	tokens, err := s.engine.ValidateLoginOTP(r.Context(), body.UserID, body.Code, deviceFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decode(w, r, &body) {
		return
	}
	tokens, err := s.engine.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

type recoverFunc func(context.Context, authcore.RecoveryRequest) (*authcore.TokenPair, error)

func (s *Server) recoverWith(run recoverFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username     string `json:"username"`
			Password     string `json:"password"`
			OTP          string `json:"otp"`
			RecoveryCode string `json:"recovery_code"`
		}
		if !decode(w, r, &body) {
			return
		}
		tokens, err := run(r.Context(), authcore.RecoveryRequest{
			Username:     body.Username,
			Password:     body.Password,
			OTP:          body.OTP,
			RecoveryCode: body.RecoveryCode,
			Device:       deviceFromRequest(r),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokens)
	}
}

/* ---- authenticated routes ---- */

func (s *Server) generateOTP(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	enrollment, err := s.engine.GenerateOTP(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollment)
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	var body struct {
		Code string `json:"code"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := s.engine.VerifyOTP(r.Context(), claims.UserID, body.Code); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) disableOTP(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	if err := s.engine.DisableOTP(r.Context(), claims.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	if err := s.engine.Logout(r.Context(), claims.SessionID()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logoutAll(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	n, err := s.engine.LogoutAll(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"revoked": n})
}

func (s *Server) sessions(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	list, err := s.engine.ListSessions(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"current":  claims.SessionID(),
		"sessions": list,
	})
}

func (s *Server) account(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	info, err := s.engine.Account(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) setPassword(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	var body struct {
		NewPassword string `json:"new_password"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := s.engine.SetPassword(r.Context(), claims.UserID, body.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updatePassword(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := s.engine.UpdatePassword(r.Context(), claims.UserID, body.CurrentPassword, body.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/* ---- helpers ---- */

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "body_too_large", Message: "request body too large"})
			return false
		}
		badRequest(w, "malformed JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
