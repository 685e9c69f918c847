package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparkbytes/foodfinder/internal/models"
	"github.com/sparkbytes/foodfinder/pkg/response"
	"github.com/sparkbytes/foodfinder/pkg/utils"
)

// ContextUserID is the gin context key the JWT middleware stores the caller's id under.
const ContextUserID = "user_id"

// UserStore is the persistence the auth handler needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash string) (*models.User, error)
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users  UserStore
	jwt    *JWTService
	domain string
	logger *zap.Logger
}

// NewHandler creates an auth handler. domain is the institutional email domain
// accepted at sign-up.
func NewHandler(users UserStore, jwt *JWTService, domain string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, jwt: jwt, domain: domain, logger: logger}
}

// Register handles POST /auth/register. New accounts start as students.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := strings.TrimSpace(req.Email)
	if err := ValidateEmail(email, h.domain); err != nil {
		response.BadRequest(c, "please use your @"+h.domain+" email address")
		return
	}
	if err := ValidatePassword(req.Password); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password failed", zap.Error(err))
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.users.Create(c.Request.Context(), email, hash)
	if errors.Is(err, ErrEmailTaken) {
		response.Conflict(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			h.logger.Error("login lookup failed", zap.Error(err))
		}
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Me handles GET /auth/me. The JWT middleware must run first.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := c.Get(ContextUserID)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), userID.(uuid.UUID))
	if errors.Is(err, ErrUserNotFound) {
		response.Unauthorized(c, "Unauthorized")
		return
	}
	if err != nil {
		h.logger.Error("load current user failed", zap.Error(err))
		response.Internal(c, "failed to load user")
		return
	}
	response.OK(c, gin.H{"user": user.ToPublic()})
}
