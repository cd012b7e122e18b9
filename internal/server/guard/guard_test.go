package guard

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basketlog/auth-service/internal/common"
	"github.com/basketlog/auth-service/internal/keys"
	"github.com/basketlog/auth-service/internal/server/models"
	"github.com/basketlog/auth-service/internal/token"
)

type fakeCarrier struct {
	accessToken  string
	refreshToken string
	renewed      string
	renewedSet   bool
}

func (c *fakeCarrier) AccessToken() (string, bool)  { return c.accessToken, c.accessToken != "" }
func (c *fakeCarrier) RefreshToken() (string, bool) { return c.refreshToken, c.refreshToken != "" }
func (c *fakeCarrier) SetAccessToken(t string)      { c.renewed = t; c.renewedSet = true }

type fakeRefresher struct {
	accessToken string
	err         error
	calls       int
}

func (f *fakeRefresher) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.accessToken, nil
}

type fakeUserFinder struct {
	user *models.User
	err  error
}

func (f *fakeUserFinder) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.user == nil || f.user.ID != id {
		return nil, common.ErrUserNotExist
	}
	return f.user, nil
}

func newTestKeyStore(t *testing.T) *keys.Store {
	t.Helper()
	ks, err := keys.Load(filepath.Join(t.TempDir(), "keys.json"))
	require.NoError(t, err)
	return ks
}

func encodeAccessToken(t *testing.T, key *ecdsa.PrivateKey, userID int64, expiresAt time.Time) string {
	t.Helper()
	tok, err := token.Encode(userID, token.ClassAccess, expiresAt, key)
	require.NoError(t, err)
	return tok
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: 42, Email: "user@example.com", IsVerified: true, Role: common.RoleUser}

	t.Run("valid access token", func(t *testing.T) {
		ks := newTestKeyStore(t)
		g := New(ks, &fakeRefresher{}, &fakeUserFinder{user: user})
		carrier := &fakeCarrier{
			accessToken: encodeAccessToken(t, ks.Signer(token.ClassAccess), 42, time.Now().Add(time.Minute)),
		}

		identity, err := g.Resolve(ctx, carrier)
		require.NoError(t, err)
		assert.Equal(t, int64(42), identity.UserID)
		assert.Equal(t, "user@example.com", identity.Email)
		assert.True(t, identity.IsVerified)
		assert.False(t, identity.IsAdmin)
		assert.False(t, carrier.renewedSet)
	})

	t.Run("expired access token renews from refresh token", func(t *testing.T) {
		ks := newTestKeyStore(t)
		renewed := encodeAccessToken(t, ks.Signer(token.ClassAccess), 42, time.Now().Add(time.Minute))
		refresher := &fakeRefresher{accessToken: renewed}
		g := New(ks, refresher, &fakeUserFinder{user: user})
		carrier := &fakeCarrier{
			accessToken:  encodeAccessToken(t, ks.Signer(token.ClassAccess), 42, time.Now().Add(-time.Minute)),
			refreshToken: "live-refresh",
		}

		identity, err := g.Resolve(ctx, carrier)
		require.NoError(t, err)
		assert.Equal(t, int64(42), identity.UserID)
		assert.Equal(t, 1, refresher.calls)
		assert.Equal(t, renewed, carrier.renewed)
	})

	t.Run("absent access token renews from refresh token", func(t *testing.T) {
		ks := newTestKeyStore(t)
		renewed := encodeAccessToken(t, ks.Signer(token.ClassAccess), 42, time.Now().Add(time.Minute))
		g := New(ks, &fakeRefresher{accessToken: renewed}, &fakeUserFinder{user: user})
		carrier := &fakeCarrier{refreshToken: "live-refresh"}

		identity, err := g.Resolve(ctx, carrier)
		require.NoError(t, err)
		assert.Equal(t, int64(42), identity.UserID)
		assert.Equal(t, renewed, carrier.renewed)
	})

	t.Run("no tokens at all", func(t *testing.T) {
		ks := newTestKeyStore(t)
		g := New(ks, &fakeRefresher{}, &fakeUserFinder{user: user})

		_, err := g.Resolve(ctx, &fakeCarrier{})
		assert.ErrorIs(t, err, common.ErrTokenMissing)
	})

	t.Run("tampered access token does not consult the refresh token", func(t *testing.T) {
		ks := newTestKeyStore(t)
		refresher := &fakeRefresher{}
		g := New(ks, refresher, &fakeUserFinder{user: user})
		valid := encodeAccessToken(t, ks.Signer(token.ClassAccess), 42, time.Now().Add(time.Minute))
		carrier := &fakeCarrier{
			accessToken:  valid[:len(valid)-2] + "xx",
			refreshToken: "live-refresh",
		}

		_, err := g.Resolve(ctx, carrier)
		assert.ErrorIs(t, err, common.ErrTokenInvalid)
		assert.Zero(t, refresher.calls)
	})

	t.Run("expired access token and dead refresh token", func(t *testing.T) {
		ks := newTestKeyStore(t)
		g := New(ks, &fakeRefresher{err: common.ErrRefreshTokenInvalid}, &fakeUserFinder{user: user})
		carrier := &fakeCarrier{
			accessToken:  encodeAccessToken(t, ks.Signer(token.ClassAccess), 42, time.Now().Add(-time.Minute)),
			refreshToken: "revoked",
		}

		_, err := g.Resolve(ctx, carrier)
		assert.ErrorIs(t, err, common.ErrRefreshTokenInvalid)
		assert.False(t, carrier.renewedSet)
	})

	t.Run("token subject no longer exists", func(t *testing.T) {
		ks := newTestKeyStore(t)
		g := New(ks, &fakeRefresher{}, &fakeUserFinder{})
		carrier := &fakeCarrier{
			accessToken: encodeAccessToken(t, ks.Signer(token.ClassAccess), 42, time.Now().Add(time.Minute)),
		}

		_, err := g.Resolve(ctx, carrier)
		assert.ErrorIs(t, err, common.ErrUserNotExist)
	})

	t.Run("access token signed with the previous key", func(t *testing.T) {
		ks := newTestKeyStore(t)
		oldKey := ks.Signer(token.ClassAccess)
		require.NoError(t, ks.Rotate())

		g := New(ks, &fakeRefresher{}, &fakeUserFinder{user: user})
		carrier := &fakeCarrier{
			accessToken: encodeAccessToken(t, oldKey, 42, time.Now().Add(time.Minute)),
		}

		_, err := g.Resolve(ctx, carrier)
		assert.NoError(t, err)
	})
}

func TestResolveVerified(t *testing.T) {
	ctx := context.Background()
	ks := newTestKeyStore(t)

	t.Run("verified user passes", func(t *testing.T) {
		user := &models.User{ID: 1, IsVerified: true, Role: common.RoleUser}
		g := New(ks, &fakeRefresher{}, &fakeUserFinder{user: user})
		carrier := &fakeCarrier{
			accessToken: encodeAccessToken(t, ks.Signer(token.ClassAccess), 1, time.Now().Add(time.Minute)),
		}

		_, err := g.ResolveVerified(ctx, carrier)
		assert.NoError(t, err)
	})

	t.Run("unverified user rejected", func(t *testing.T) {
		user := &models.User{ID: 1, Role: common.RoleUser}
		g := New(ks, &fakeRefresher{}, &fakeUserFinder{user: user})
		carrier := &fakeCarrier{
			accessToken: encodeAccessToken(t, ks.Signer(token.ClassAccess), 1, time.Now().Add(time.Minute)),
		}

		_, err := g.ResolveVerified(ctx, carrier)
		assert.ErrorIs(t, err, common.ErrUserNotVerified)
	})
}

func TestResolveUnverified(t *testing.T) {
	ctx := context.Background()
	ks := newTestKeyStore(t)

	t.Run("unverified user passes", func(t *testing.T) {
		user := &models.User{ID: 1, Role: common.RoleUser}
		g := New(ks, &fakeRefresher{}, &fakeUserFinder{user: user})
		carrier := &fakeCarrier{
			accessToken: encodeAccessToken(t, ks.Signer(token.ClassAccess), 1, time.Now().Add(time.Minute)),
		}

		_, err := g.ResolveUnverified(ctx, carrier)
		assert.NoError(t, err)
	})

	t.Run("already verified user rejected", func(t *testing.T) {
		user := &models.User{ID: 1, IsVerified: true, Role: common.RoleUser}
		g := New(ks, &fakeRefresher{}, &fakeUserFinder{user: user})
		carrier := &fakeCarrier{
			accessToken: encodeAccessToken(t, ks.Signer(token.ClassAccess), 1, time.Now().Add(time.Minute)),
		}

		_, err := g.ResolveUnverified(ctx, carrier)
		assert.ErrorIs(t, err, common.ErrUserAlreadyVerified)
	})
}

func TestResolveAdmin(t *testing.T) {
	ctx := context.Background()
	ks := newTestKeyStore(t)

	t.Run("admin passes", func(t *testing.T) {
		user := &models.User{ID: 1, IsVerified: true, Role: common.RoleAdmin}
		g := New(ks, &fakeRefresher{}, &fakeUserFinder{user: user})
		carrier := &fakeCarrier{
			accessToken: encodeAccessToken(t, ks.Signer(token.ClassAccess), 1, time.Now().Add(time.Minute)),
		}

		identity, err := g.ResolveAdmin(ctx, carrier)
		require.NoError(t, err)
		assert.True(t, identity.IsAdmin)
	})

	t.Run("plain user rejected", func(t *testing.T) {
		user := &models.User{ID: 1, IsVerified: true, Role: common.RoleUser}
		g := New(ks, &fakeRefresher{}, &fakeUserFinder{user: user})
		carrier := &fakeCarrier{
			accessToken: encodeAccessToken(t, ks.Signer(token.ClassAccess), 1, time.Now().Add(time.Minute)),
		}

		_, err := g.ResolveAdmin(ctx, carrier)
		assert.ErrorIs(t, err, common.ErrForbiddenAccess)
	})
}

func TestResolveErrorPassthrough(t *testing.T) {
	ctx := context.Background()
	ks := newTestKeyStore(t)

	infra := errors.New("db down")
	g := New(ks, &fakeRefresher{}, &fakeUserFinder{err: infra})
	carrier := &fakeCarrier{
		accessToken: encodeAccessToken(t, ks.Signer(token.ClassAccess), 1, time.Now().Add(time.Minute)),
	}

	_, err := g.Resolve(ctx, carrier)
	assert.ErrorIs(t, err, infra)
}
