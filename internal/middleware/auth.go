package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campusbuzz/backend/internal/auth"
	"github.com/campusbuzz/backend/internal/models"
	"github.com/campusbuzz/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// AccessTokenValidator validates access tokens.
type AccessTokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// Auth returns a middleware that requires a valid access token (cookie or Bearer) and sets user claims in context.
func Auth(v AccessTokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := auth.TokenFromRequest(c)
		if tok == "" {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		claims, err := v.ValidateAccessToken(tok)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth sets user claims when a valid token is present and never rejects.
func OptionalAuth(v AccessTokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := auth.TokenFromRequest(c); tok != "" {
			if claims, err := v.ValidateAccessToken(tok); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	role := models.RoleUser
	if claims.IsAdmin {
		role = models.RoleAdmin
	}
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserRole, string(role))
	c.Set(ContextUserEmail, claims.Email)
}

// RequesterFrom returns the caller identity set by Auth or OptionalAuth.
// Anonymous callers get the zero Requester.
func RequesterFrom(c *gin.Context) models.Requester {
	var r models.Requester
	if v, ok := c.Get(ContextUserID); ok {
		r.UserID, _ = v.(uuid.UUID)
	}
	if v, ok := c.Get(ContextUserRole); ok {
		role, _ := v.(string)
		r.IsAdmin = role == string(models.RoleAdmin)
	}
	return r
}
