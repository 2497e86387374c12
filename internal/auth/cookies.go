package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// CookieAccess carries the short-lived access token.
	CookieAccess = "token"
	// CookieRefresh carries the long-lived refresh token.
	CookieRefresh = "refreshToken"
)

// CookieWriter sets and clears session cookies.
type CookieWriter struct {
	Secure bool
}

func (w CookieWriter) set(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   w.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// SetSession writes both session cookies.
func (w CookieWriter) SetSession(c *gin.Context, s Session) {
	now := time.Now()
	w.set(c, CookieAccess, s.AccessToken, maxAge(s.AccessExpiresAt, now))
	w.set(c, CookieRefresh, s.RefreshToken, maxAge(s.RefreshExpiresAt, now))
}

// Clear expires both session cookies.
func (w CookieWriter) Clear(c *gin.Context) {
	w.set(c, CookieAccess, "", -1)
	w.set(c, CookieRefresh, "", -1)
}

func maxAge(exp, now time.Time) int {
	if s := int(exp.Sub(now).Seconds()); s > 0 {
		return s
	}
	return -1
}
