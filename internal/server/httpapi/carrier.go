package httpapi

import (
	"net/http"
	"time"

	"github.com/basketlog/auth-service/internal/common"
)

// CookieCarrier moves tokens between the client and the service in HttpOnly
// cookies, so browser scripts never see token material.
type CookieCarrier struct {
	r          *http.Request
	w          http.ResponseWriter
	refreshTTL time.Duration
}

func NewCookieCarrier(w http.ResponseWriter, r *http.Request, refreshTTL time.Duration) *CookieCarrier {
	return &CookieCarrier{r: r, w: w, refreshTTL: refreshTTL}
}

func (c *CookieCarrier) AccessToken() (string, bool) {
	return c.cookie(common.AccessTokenCookieName)
}

func (c *CookieCarrier) RefreshToken() (string, bool) {
	return c.cookie(common.RefreshTokenCookieName)
}

// SetAccessToken sends a renewed access token on the response. The cookie is
// session-scoped: the token carries its own expiry.
func (c *CookieCarrier) SetAccessToken(token string) {
	http.SetCookie(c.w, c.tokenCookie(common.AccessTokenCookieName, token, 0))
}

// SetRefreshToken sends the refresh token with a max-age matching its
// validity window.
func (c *CookieCarrier) SetRefreshToken(token string) {
	http.SetCookie(c.w, c.tokenCookie(common.RefreshTokenCookieName, token, int(c.refreshTTL.Seconds())))
}

// Clear expires both token cookies on the client.
func (c *CookieCarrier) Clear() {
	http.SetCookie(c.w, c.tokenCookie(common.AccessTokenCookieName, "", -1))
	http.SetCookie(c.w, c.tokenCookie(common.RefreshTokenCookieName, "", -1))
}

func (c *CookieCarrier) cookie(name string) (string, bool) {
	cookie, err := c.r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (c *CookieCarrier) tokenCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}
