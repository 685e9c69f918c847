package auditlog

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sparkbytes/foodfinder/pkg/response"
)

// Handler serves the audit log listing.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an audit log handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /api/admin/audit-logs?action=&status=&page=&limit=.
func (h *Handler) List(c *gin.Context) {
	f := Filter{
		Action: c.Query("action"),
		Status: c.Query("status"),
	}
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	page, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list audit logs failed", zap.Error(err))
		response.AdminError(c, 500, "Failed to load audit logs")
		return
	}
	response.OK(c, page)
}
