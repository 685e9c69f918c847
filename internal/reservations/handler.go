package reservations

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparkbytes/foodfinder/internal/middleware"
	"github.com/sparkbytes/foodfinder/internal/models"
	"github.com/sparkbytes/foodfinder/pkg/response"
)

// ReserveRequest is the body for POST /api/reservations.
type ReserveRequest struct {
	EventFoodID string `json:"eventFoodId"`
	Quantity    *int   `json:"quantity"`
}

// StatusRequest is the body for PATCH /api/reservations/:id.
type StatusRequest struct {
	Status string `json:"status"`
}

// Handler serves the food item and reservation endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a reservation handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Foods handles GET /api/event-foods?eventId=. A missing event id yields an
// empty list.
func (h *Handler) Foods(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("eventId"))
	if raw == "" || raw == "undefined" {
		response.OK(c, gin.H{"foods": []models.FoodAvailability{}})
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}
	eventID, err := uuid.Parse(raw)
	if err != nil {
		response.OK(c, gin.H{"foods": []models.FoodAvailability{}})
		return
	}
	foods, err := h.svc.FoodsForEvent(c.Request.Context(), eventID, userID)
	if err != nil {
		h.logger.Error("load event foods failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "Failed to load food items")
		return
	}
	response.OK(c, gin.H{"foods": foods})
}

// Reserve handles POST /api/reservations. Quantity defaults to 1.
func (h *Handler) Reserve(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, ErrInvalidRequest.Error())
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	foodID, err := uuid.Parse(strings.TrimSpace(req.EventFoodID))
	if err != nil || !ValidQuantity(qty) {
		response.BadRequest(c, ErrInvalidRequest.Error())
		return
	}

	userID, _ := middleware.UserID(c)
	if err := h.svc.Reserve(c.Request.Context(), userID, foodID, qty); err != nil {
		h.fail(c, err, "Failed to create reservation", zap.String("event_food_id", foodID.String()))
		return
	}
	response.Created(c, response.SuccessBody{Success: true})
}

// List handles GET /api/reservations.
func (h *Handler) List(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	list, err := h.svc.ListForStudent(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list reservations failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "Failed to load reservations")
		return
	}
	response.OK(c, gin.H{"reservations": list})
}

// UpdateStatus handles PATCH /api/reservations/:id.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, ErrInvalidStatus.Error())
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, ErrReservationNotFound.Error())
		return
	}
	userID, _ := middleware.UserID(c)
	err = h.svc.UpdateStatus(c.Request.Context(), userID, id, models.ReservationStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		h.fail(c, err, "Failed to update reservation status", zap.String("reservation_id", id.String()))
		return
	}
	response.Success(c)
}

// EventReservations handles GET /api/vendor/events/:id/reservations.
func (h *Handler) EventReservations(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, ErrEventNotFound.Error())
		return
	}
	userID, _ := middleware.UserID(c)
	foods, err := h.svc.ListForEvent(c.Request.Context(), userID, eventID)
	if err != nil {
		h.fail(c, err, "Failed to load reservations", zap.String("event_id", eventID.String()))
		return
	}
	response.OK(c, gin.H{"foods": foods})
}

func (h *Handler) fail(c *gin.Context, err error, fallback string, fields ...zap.Field) {
	status, known := statusFor(err)
	if !known {
		h.logger.Error(strings.ToLower(fallback), append(fields, zap.Error(err))...)
		response.Internal(c, fallback)
		return
	}
	response.Error(c, status, err.Error())
}
