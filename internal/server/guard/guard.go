// Package guard authenticates requests from the tokens a transport carries,
// renewing expired access tokens transparently from the refresh token.
package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/basketlog/auth-service/internal/common"
	"github.com/basketlog/auth-service/internal/keys"
	"github.com/basketlog/auth-service/internal/server/models"
	"github.com/basketlog/auth-service/internal/token"
)

// Carrier abstracts how tokens travel with a request. The HTTP layer
// implements it over cookies; tests implement it over plain fields.
type Carrier interface {
	// AccessToken returns the inbound access token, if any.
	AccessToken() (string, bool)

	// RefreshToken returns the inbound refresh token, if any.
	RefreshToken() (string, bool)

	// SetAccessToken sends a renewed access token back on the response.
	SetAccessToken(token string)
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID     int64
	Email      string
	IsVerified bool
	IsAdmin    bool
}

// TokenRefresher mints a new access token from a live refresh token.
type TokenRefresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
}

// UserFinder resolves the account record behind a token subject.
type UserFinder interface {
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Guard resolves a request's tokens into an Identity.
type Guard struct {
	keys      *keys.Store
	refresher TokenRefresher
	users     UserFinder
}

func New(ks *keys.Store, refresher TokenRefresher, users UserFinder) *Guard {
	return &Guard{keys: ks, refresher: refresher, users: users}
}

// Resolve authenticates the carrier's tokens.
//
// A valid access token wins outright. An absent or expired access token
// falls through to the refresh token: if the refresh token is live, a new
// access token is minted and written back to the carrier, so the caller never
// observes the renewal. A tampered access token is rejected without
// consulting the refresh token.
func (g *Guard) Resolve(ctx context.Context, carrier Carrier) (*Identity, error) {
	userID, err := g.subject(ctx, carrier)
	if err != nil {
		return nil, err
	}

	user, err := g.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotExist) {
			return nil, common.ErrUserNotExist
		}
		return nil, fmt.Errorf("error resolving token subject: %w", err)
	}

	return &Identity{
		UserID:     user.ID,
		Email:      user.Email,
		IsVerified: user.IsVerified,
		IsAdmin:    user.Role == common.RoleAdmin,
	}, nil
}

// ResolveVerified is Resolve plus a verified-email gate.
func (g *Guard) ResolveVerified(ctx context.Context, carrier Carrier) (*Identity, error) {
	identity, err := g.Resolve(ctx, carrier)
	if err != nil {
		return nil, err
	}
	if !identity.IsVerified {
		return nil, common.ErrUserNotVerified
	}
	return identity, nil
}

// ResolveUnverified is Resolve restricted to accounts that have not verified
// their email yet, e.g. requesting another verification mail.
func (g *Guard) ResolveUnverified(ctx context.Context, carrier Carrier) (*Identity, error) {
	identity, err := g.Resolve(ctx, carrier)
	if err != nil {
		return nil, err
	}
	if identity.IsVerified {
		return nil, common.ErrUserAlreadyVerified
	}
	return identity, nil
}

// ResolveAdmin is Resolve plus an admin-role gate.
func (g *Guard) ResolveAdmin(ctx context.Context, carrier Carrier) (*Identity, error) {
	identity, err := g.Resolve(ctx, carrier)
	if err != nil {
		return nil, err
	}
	if !identity.IsAdmin {
		return nil, common.ErrForbiddenAccess
	}
	return identity, nil
}

func (g *Guard) subject(ctx context.Context, carrier Carrier) (int64, error) {
	accessToken, ok := carrier.AccessToken()
	if ok {
		claims, err := token.DecodeWithCandidates(accessToken, g.keys.VerificationKeys(token.ClassAccess), token.ClassAccess)
		switch {
		case err == nil:
			return claims.UserID()
		case errors.Is(err, common.ErrTokenExpired):
			// fall through to the refresh token
		default:
			return 0, common.ErrTokenInvalid
		}
	}
	return g.renew(ctx, carrier)
}

func (g *Guard) renew(ctx context.Context, carrier Carrier) (int64, error) {
	refreshToken, ok := carrier.RefreshToken()
	if !ok {
		return 0, common.ErrTokenMissing
	}

	accessToken, err := g.refresher.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		return 0, err
	}

	claims, err := token.DecodeWithCandidates(accessToken, g.keys.VerificationKeys(token.ClassAccess), token.ClassAccess)
	if err != nil {
		return 0, fmt.Errorf("error decoding renewed access token: %w", err)
	}

	carrier.SetAccessToken(accessToken)
	return claims.UserID()
}
