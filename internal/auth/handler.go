package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/config"
	"github.com/campusbuzz/backend/internal/models"
	"github.com/campusbuzz/backend/pkg/apperr"
	"github.com/campusbuzz/backend/pkg/response"
	"github.com/campusbuzz/backend/pkg/utils"
)

const invalidCredentials = "invalid email or password"

// UserStore is the user persistence the auth handlers need.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, name, email, passwordHash string, isAdmin bool) (*models.User, error)
}

// RegisterRequest is the body for POST /register.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the body for POST /login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the login response. The token is also set as a cookie;
// it is returned for clients that send Authorization: Bearer instead.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo    UserStore
	jwt     *JWTService
	cookies CookieWriter
	admins  config.AdminConfig
	logger  *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo UserStore, jwt *JWTService, cookies CookieWriter, admins config.AdminConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, cookies: cookies, admins: admins, logger: logger}
}

// Register handles POST /register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		response.BadRequest(c, "name is required")
		return
	}
	email := utils.NormalizeEmail(req.Email)

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Error(c, h.logger, apperr.Internal("hash password", err))
		return
	}

	isAdmin := h.admins.IsAdminEmail(email)
	user, err := h.repo.Create(c.Request.Context(), name, email, hash, isAdmin)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	h.logger.Info("user registered", zap.String("user_id", user.ID.String()), zap.Bool("is_admin", isAdmin))
	response.Created(c, user.ToPublic(), "User registered successfully")
}

// Login handles POST /login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), utils.NormalizeEmail(req.Email))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			response.Unauthorized(c, invalidCredentials)
			return
		}
		response.Error(c, h.logger, err)
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, invalidCredentials)
		return
	}

	sess, err := h.jwt.IssueSession(UserClaims{UserID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin})
	if err != nil {
		response.Error(c, h.logger, apperr.Internal("issue session", err))
		return
	}
	h.cookies.SetSession(c, sess)
	response.OK(c, TokenResponse{Token: sess.AccessToken, User: user.ToPublic()})
}

// Refresh handles POST /refresh-token. Any failure clears both cookies so the client logs out.
func (h *Handler) Refresh(c *gin.Context) {
	raw, err := c.Cookie(CookieRefresh)
	if err != nil || raw == "" {
		h.cookies.Clear(c)
		response.Unauthorized(c, "refresh token not found")
		return
	}
	claims, err := h.jwt.ValidateRefreshToken(raw)
	if err != nil {
		h.cookies.Clear(c)
		response.Unauthorized(c, "invalid refresh token")
		return
	}

	user, err := h.repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.cookies.Clear(c)
		if apperr.Is(err, apperr.KindNotFound) {
			response.Unauthorized(c, "user not found")
			return
		}
		response.Error(c, h.logger, err)
		return
	}

	sess, err := h.jwt.IssueSession(UserClaims{UserID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin})
	if err != nil {
		h.cookies.Clear(c)
		response.Error(c, h.logger, apperr.Internal("issue session", err))
		return
	}
	h.cookies.SetSession(c, sess)
	response.OKMessage(c, user.ToPublic(), "Token refreshed successfully")
}

// Logout handles POST /logout.
func (h *Handler) Logout(c *gin.Context) {
	h.cookies.Clear(c)
	response.OKMessage(c, nil, "Logged out successfully")
}

// Profile handles GET /profile. Anonymous callers get data: null rather than 401.
func (h *Handler) Profile(c *gin.Context) {
	claims, err := h.jwt.ValidateAccessToken(TokenFromRequest(c))
	if err != nil {
		response.OK(c, nil)
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			response.OK(c, nil)
			return
		}
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, user.ToPublic())
}

// TokenFromRequest returns the access token from the session cookie, falling back to
// an Authorization: Bearer header. Empty when neither is present.
func TokenFromRequest(c *gin.Context) string {
	if tok, err := c.Cookie(CookieAccess); err == nil && tok != "" {
		return tok
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
