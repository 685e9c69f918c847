package organizers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sparkbytes/foodfinder/internal/middleware"
	"github.com/sparkbytes/foodfinder/pkg/response"
)

// Handler serves the applicant side of the organizer workflow.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an organizer application handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Get handles GET /api/organizer/application.
func (h *Handler) Get(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	app, err := h.svc.Get(c.Request.Context(), userID)
	if errors.Is(err, ErrApplicationNotFound) {
		response.NotFound(c, "No application on file")
		return
	}
	if err != nil {
		h.logger.Error("get application failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "Could not load application")
		return
	}
	response.OK(c, gin.H{"application": app})
}

// Submit handles POST /api/organizer/application.
func (h *Handler) Submit(c *gin.Context) {
	var in SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, _ := middleware.UserID(c)
	app, err := h.svc.Submit(c.Request.Context(), userID, middleware.UserEmail(c), in)
	switch {
	case errors.Is(err, ErrMissingFields):
		response.BadRequest(c, err.Error())
		return
	case errors.Is(err, ErrAlreadyApproved):
		response.Conflict(c, "You are already an approved organizer")
		return
	case err != nil:
		h.logger.Error("submit application failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "Could not submit application")
		return
	}
	response.OK(c, gin.H{"application": app})
}
