package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparkbytes/foodfinder/internal/auditlog"
	"github.com/sparkbytes/foodfinder/internal/middleware"
	"github.com/sparkbytes/foodfinder/internal/models"
	"github.com/sparkbytes/foodfinder/internal/organizers"
	"github.com/sparkbytes/foodfinder/pkg/response"
)

// Workflow is the organizer review workflow driven by the admin console.
type Workflow interface {
	ByStatus(ctx context.Context, status models.ApplicationStatus) ([]models.OrganizerApplication, error)
	Active(ctx context.Context) ([]organizers.Organizer, error)
	Approve(ctx context.Context, userID uuid.UUID) error
	Reject(ctx context.Context, userID uuid.UUID) error
	Revoke(ctx context.Context, userID uuid.UUID) error
}

// Auditor records admin actions.
type Auditor interface {
	Record(ctx context.Context, actorID, targetID uuid.UUID, action string, details map[string]interface{}, ip, status string)
}

// Handler serves /api/admin.
type Handler struct {
	workflow Workflow
	audit    Auditor
	logger   *zap.Logger
}

// NewHandler creates an admin handler.
func NewHandler(workflow Workflow, audit Auditor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{workflow: workflow, audit: audit, logger: logger}
}

type decisionRequest struct {
	UserID string `json:"userId"`
}

// ListApplications handles GET /api/admin/applications?status=pending.
func (h *Handler) ListApplications(c *gin.Context) {
	status := models.ApplicationStatus(c.DefaultQuery("status", string(models.ApplicationPending)))
	if !status.Valid() {
		response.AdminError(c, http.StatusBadRequest, "Invalid status")
		return
	}
	list, err := h.workflow.ByStatus(c.Request.Context(), status)
	if err != nil {
		h.logger.Error("list applications failed", zap.Error(err))
		response.AdminError(c, http.StatusInternalServerError, "Failed to load applications")
		return
	}
	response.OK(c, gin.H{"ok": true, "applications": list})
}

// ListOrganizers handles GET /api/admin/organizers.
func (h *Handler) ListOrganizers(c *gin.Context) {
	list, err := h.workflow.Active(c.Request.Context())
	if err != nil {
		h.logger.Error("list organizers failed", zap.Error(err))
		response.AdminError(c, http.StatusInternalServerError, "Failed to load organizers")
		return
	}
	response.OK(c, gin.H{"ok": true, "organizers": list})
}

// Approve handles POST /api/admin/approve-organizer.
func (h *Handler) Approve(c *gin.Context) {
	h.decide(c, h.workflow.Approve, auditlog.ActionOrganizerApproved)
}

// Reject handles POST /api/admin/reject-organizer.
func (h *Handler) Reject(c *gin.Context) {
	h.decide(c, h.workflow.Reject, auditlog.ActionOrganizerRejected)
}

// Revoke handles POST /api/admin/revoke-organizer.
func (h *Handler) Revoke(c *gin.Context) {
	h.decide(c, h.workflow.Revoke, auditlog.ActionOrganizerRevoked)
}

func (h *Handler) decide(c *gin.Context, run func(context.Context, uuid.UUID) error, action string) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		response.AdminError(c, http.StatusBadRequest, "Missing userId")
		return
	}
	target, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		response.AdminError(c, http.StatusBadRequest, "Invalid userId")
		return
	}
	actor, _ := middleware.UserID(c)
	ctx := c.Request.Context()

	err = run(ctx, target)
	if err != nil {
		h.audit.Record(ctx, actor, target, action+"_FAILED", map[string]interface{}{"error": err.Error()}, c.ClientIP(), auditlog.StatusFailure)
		switch {
		case errors.Is(err, organizers.ErrApplicationNotFound):
			response.AdminError(c, http.StatusNotFound, "Application not found")
		case errors.Is(err, organizers.ErrInvalidTransition):
			response.AdminError(c, http.StatusBadRequest, "Application cannot be moved to that status")
		default:
			h.logger.Error("admin decision failed", zap.Error(err), zap.String("action", action), zap.String("target", target.String()))
			response.AdminError(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	h.audit.Record(ctx, actor, target, action, nil, c.ClientIP(), auditlog.StatusSuccess)
	response.AdminOK(c)
}
