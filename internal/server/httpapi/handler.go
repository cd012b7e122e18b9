package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/basketlog/auth-service/internal/common"
	"github.com/basketlog/auth-service/internal/server/guard"
	"github.com/basketlog/auth-service/internal/server/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullname"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type changeEmailRequest struct {
	Password string `json:"password"`
	NewEmail string `json:"new_email"`
}

type userResponse struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullname"`
	IsVerified bool      `json:"is_verified"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type identityResponse struct {
	UserID     int64  `json:"user_id"`
	Email      string `json:"email"`
	IsVerified bool   `json:"is_verified"`
	IsAdmin    bool   `json:"is_admin"`
}

func toIdentityResponse(i *guard.Identity) identityResponse {
	return identityResponse{UserID: i.UserID, Email: i.Email, IsVerified: i.IsVerified, IsAdmin: i.IsAdmin}
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		IsVerified: u.IsVerified,
		Role:       u.Role,
		CreatedAt:  u.CreatedAt,
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

func (s *HTTPServer) carrier(w http.ResponseWriter, r *http.Request) *CookieCarrier {
	return NewCookieCarrier(w, r, s.refreshTTL)
}

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}

	user, err := s.auth.Register(ctx, req.Email, req.Password, req.FullName)
	if err != nil {
		s.logger.Error(ctx, err.Error())
		writeError(w, err)
		return
	}

	// delivery failures must not fail the registration
	if err := s.email.SendEmailVerification(ctx, user.Email); err != nil {
		s.logger.Error(ctx, "error sending verification email", "error", err.Error())
	}

	pair, err := s.tokens.IssueTokenPair(ctx, user.ID)
	if err != nil {
		s.logger.Error(ctx, err.Error())
		writeError(w, err)
		return
	}

	carrier := s.carrier(w, r)
	carrier.SetAccessToken(pair.AccessToken)
	carrier.SetRefreshToken(pair.RefreshToken)

	s.logger.Info(ctx, "Registered", "email", user.Email)
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	pair, err := s.tokens.IssueTokenPair(ctx, user.ID)
	if err != nil {
		s.logger.Error(ctx, err.Error())
		writeError(w, err)
		return
	}

	carrier := s.carrier(w, r)
	carrier.SetAccessToken(pair.AccessToken)
	carrier.SetRefreshToken(pair.RefreshToken)

	s.logger.Info(ctx, "Logged in", "email", user.Email)
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *HTTPServer) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	carrier := s.carrier(w, r)

	if refreshToken, ok := carrier.RefreshToken(); ok {
		if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
			s.logger.Error(ctx, err.Error())
			writeError(w, err)
			return
		}
	}

	carrier.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	carrier := s.carrier(w, r)

	refreshToken, ok := carrier.RefreshToken()
	if !ok {
		writeError(w, common.ErrTokenMissing)
		return
	}

	accessToken, err := s.tokens.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	carrier.SetAccessToken(accessToken)
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) changePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	carrier := s.carrier(w, r)

	identity, err := s.guard.Resolve(ctx, carrier)
	if err != nil {
		writeError(w, err)
		return
	}

	var req changePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.auth.ChangePassword(ctx, identity.UserID, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	if err := s.email.SendPasswordChangeNotification(ctx, identity.Email); err != nil {
		s.logger.Error(ctx, "error sending notification email", "error", err.Error())
	}

	// the refresh token was revoked, the client must log in again
	carrier.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) changeEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	carrier := s.carrier(w, r)

	identity, err := s.guard.Resolve(ctx, carrier)
	if err != nil {
		writeError(w, err)
		return
	}

	var req changeEmailRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.auth.ChangeEmail(ctx, identity.UserID, req.Password, req.NewEmail); err != nil {
		writeError(w, err)
		return
	}

	if err := s.email.SendEmailVerification(ctx, req.NewEmail); err != nil {
		s.logger.Error(ctx, "error sending verification email", "error", err.Error())
	}
	if err := s.email.SendEmailChangeNotification(ctx, identity.Email, req.NewEmail); err != nil {
		s.logger.Error(ctx, "error sending notification email", "error", err.Error())
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) sendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := s.guard.ResolveUnverified(ctx, s.carrier(w, r))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.email.SendEmailVerification(ctx, identity.Email); err != nil {
		s.logger.Error(ctx, err.Error())
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, messageResponse{Message: "verification email sent"})
}

func (s *HTTPServer) verifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email := r.URL.Query().Get("email")
	code := r.URL.Query().Get("token")
	if email == "" || code == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email and token are required"})
		return
	}

	if err := s.email.VerifyEmailVerificationCode(ctx, email, code); err != nil {
		writeError(w, err)
		return
	}

	if err := s.auth.VerifyUserByEmail(ctx, email); err != nil {
		s.logger.Error(ctx, err.Error())
		writeError(w, err)
		return
	}

	s.logger.Info(ctx, "Email verified", "email", email)
	writeJSON(w, http.StatusOK, messageResponse{Message: "email verified"})
}

func (s *HTTPServer) me(w http.ResponseWriter, r *http.Request) {
	identity, err := s.guard.Resolve(r.Context(), s.carrier(w, r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toIdentityResponse(identity))
}

func (s *HTTPServer) meVerified(w http.ResponseWriter, r *http.Request) {
	identity, err := s.guard.ResolveVerified(r.Context(), s.carrier(w, r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toIdentityResponse(identity))
}

func (s *HTTPServer) rotateKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := s.guard.ResolveAdmin(ctx, s.carrier(w, r)); err != nil {
		writeError(w, err)
		return
	}

	if err := s.rotator.Rotate(); err != nil {
		s.logger.Error(ctx, err.Error())
		writeError(w, err)
		return
	}

	s.logger.Info(ctx, "Signing keys rotated")
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "OK"})
}
