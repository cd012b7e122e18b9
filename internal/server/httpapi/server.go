// Package httpapi exposes the auth service over HTTP. Tokens travel in
// HttpOnly cookies; request and response bodies are JSON.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/basketlog/auth-service/internal/logging"
	"github.com/basketlog/auth-service/internal/server/guard"
	"github.com/basketlog/auth-service/internal/server/models"
	"github.com/basketlog/auth-service/internal/server/services"
)

// AuthManager covers account lifecycle operations.
type AuthManager interface {
	Register(ctx context.Context, email, password, fullName string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
	ChangeEmail(ctx context.Context, userID int64, password, newEmail string) error
	VerifyUserByEmail(ctx context.Context, email string) error
}

// TokenManager covers token issuance, refresh, and revocation.
type TokenManager interface {
	IssueTokenPair(ctx context.Context, userID int64) (*services.TokenPair, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// EmailManager covers verification codes and notification mail.
type EmailManager interface {
	SendEmailVerification(ctx context.Context, email string) error
	VerifyEmailVerificationCode(ctx context.Context, email, code string) error
	SendPasswordChangeNotification(ctx context.Context, email string) error
	SendEmailChangeNotification(ctx context.Context, oldEmail, newEmail string) error
}

// Authenticator resolves request tokens into an identity.
type Authenticator interface {
	Resolve(ctx context.Context, carrier guard.Carrier) (*guard.Identity, error)
	ResolveVerified(ctx context.Context, carrier guard.Carrier) (*guard.Identity, error)
	ResolveUnverified(ctx context.Context, carrier guard.Carrier) (*guard.Identity, error)
	ResolveAdmin(ctx context.Context, carrier guard.Carrier) (*guard.Identity, error)
}

// KeyRotator advances the signing keys by one generation.
type KeyRotator interface {
	Rotate() error
}

type HTTPServer struct {
	address    string
	logger     logging.Logger
	auth       AuthManager
	tokens     TokenManager
	email      EmailManager
	guard      Authenticator
	rotator    KeyRotator
	refreshTTL time.Duration
}

func NewHTTPServer(address string, l logging.Logger, auth AuthManager, tokens TokenManager, email EmailManager, g Authenticator, rotator KeyRotator, refreshTTL time.Duration) *HTTPServer {
	return &HTTPServer{
		address:    address,
		logger:     l.With("module", "http_server"),
		auth:       auth,
		tokens:     tokens,
		email:      email,
		guard:      g,
		rotator:    rotator,
		refreshTTL: refreshTTL,
	}
}

func (s *HTTPServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", s.register)
	mux.HandleFunc("POST /auth/login", s.login)
	mux.HandleFunc("POST /auth/logout", s.logout)
	mux.HandleFunc("POST /auth/refresh", s.refresh)
	mux.HandleFunc("POST /auth/change-password", s.changePassword)
	mux.HandleFunc("POST /auth/change-email", s.changeEmail)
	mux.HandleFunc("POST /auth/send-verification-email", s.sendVerificationEmail)
	mux.HandleFunc("GET /auth/verify-email", s.verifyEmail)
	mux.HandleFunc("GET /auth/me", s.me)
	mux.HandleFunc("GET /auth/me/verified", s.meVerified)
	mux.HandleFunc("POST /auth/rotate-keys", s.rotateKeys)
	mux.HandleFunc("GET /ping", s.ping)
	return mux
}

func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{Addr: s.address, Handler: s.routes()}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
