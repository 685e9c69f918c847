package events

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparkbytes/foodfinder/internal/middleware"
	"github.com/sparkbytes/foodfinder/internal/models"
	"github.com/sparkbytes/foodfinder/pkg/queue"
	"github.com/sparkbytes/foodfinder/pkg/response"
	"github.com/sparkbytes/foodfinder/pkg/storage"
)

// Store is the event persistence used by the handler.
type Store interface {
	Create(ctx context.Context, e *models.Event, foods []models.EventFood) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, f ListFilter) ([]models.Event, error)
	Close(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	OrganizerName(ctx context.Context, organizerID uuid.UUID) (string, error)
	Stats(ctx context.Context, organizerID uuid.UUID, now time.Time) (*Stats, error)
}

// GeocodeQueue schedules coordinate lookups for events created without them.
type GeocodeQueue interface {
	EnqueueGeocodeEvent(ctx context.Context, payload queue.GeocodeEventPayload) error
}

// ImageStore uploads public images.
type ImageStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
}

// Notifier tells live subscribers that an event was closed.
type Notifier interface {
	EventClosed(ctx context.Context, eventID uuid.UUID)
}

// Handler serves the event catalog endpoints.
type Handler struct {
	store    Store
	geocode  GeocodeQueue
	images   ImageStore
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewHandler creates an event handler. geocode, images and notifier may be nil.
func NewHandler(store Store, geocode GeocodeQueue, images ImageStore, notifier Notifier, loc *time.Location, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{store: store, geocode: geocode, images: images, notifier: notifier, loc: loc, now: time.Now, logger: logger}
}

// Create handles POST /api/events. Caller must hold the organizer role.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	event, foods, err := req.Build(h.loc)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			response.BadRequest(c, verr.Msg)
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	userID, _ := middleware.UserID(c)
	ctx := c.Request.Context()
	name, err := h.store.OrganizerName(ctx, userID)
	if err != nil || strings.TrimSpace(name) == "" {
		h.logger.Warn("resolve organizer name failed", zap.Error(err), zap.String("user_id", userID.String()))
		name = middleware.UserEmail(c)
	}
	event.OrganizerID = userID
	event.OrganizerName = name

	if err := h.store.Create(ctx, event, foods); err != nil {
		h.logger.Error("create event failed", zap.Error(err), zap.String("organizer_id", userID.String()))
		response.Internal(c, "Failed to create event")
		return
	}

	if event.Lat == nil && h.geocode != nil {
		payload := queue.GeocodeEventPayload{EventID: event.ID, Address: event.Address}
		if err := h.geocode.EnqueueGeocodeEvent(ctx, payload); err != nil {
			h.logger.Warn("enqueue geocode failed", zap.Error(err), zap.String("event_id", event.ID.String()))
		}
	}

	response.Created(c, gin.H{"success": true, "eventId": event.ID})
}

// List handles GET /api/events. Public; vendorOnly=true limits the result to
// the authenticated caller's own events.
func (h *Handler) List(c *gin.Context) {
	filter := ListFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Location: strings.TrimSpace(c.Query("location")),
		Dietary:  strings.TrimSpace(c.Query("dietary")),
		Query:    strings.TrimSpace(c.Query("q")),
	}
	if c.Query("vendorOnly") == "true" {
		userID, ok := middleware.UserID(c)
		if !ok {
			response.Unauthorized(c, "Unauthorized")
			return
		}
		filter.OrganizerID = &userID
	}

	list, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.Internal(c, "Failed to load events")
		return
	}
	now := h.now()
	views := make([]models.EventView, 0, len(list))
	for _, e := range list {
		views = append(views, e.ViewAt(now))
	}
	response.OK(c, gin.H{"events": views})
}

// Get handles GET /api/events/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "Event not found")
		return
	}
	e, err := h.store.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrEventNotFound) {
		response.NotFound(c, "Event not found")
		return
	}
	if err != nil {
		h.logger.Error("get event failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "Failed to load event")
		return
	}
	response.OK(c, gin.H{"event": e.ViewAt(h.now())})
}

// Close handles PATCH /api/vendor/events/:id/close. Only the owning organizer
// may close; closing an event that already ended succeeds without changes.
func (h *Handler) Close(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "Event not found")
		return
	}
	ctx := c.Request.Context()
	e, err := h.store.GetByID(ctx, id)
	if errors.Is(err, ErrEventNotFound) {
		response.NotFound(c, "Event not found")
		return
	}
	if err != nil {
		h.logger.Error("load event for close failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "Failed to close event")
		return
	}
	if e.OrganizerID != userID {
		response.Forbidden(c, "You are not the organizer for this event")
		return
	}

	now := h.now()
	if e.Ended(now) {
		response.Success(c)
		return
	}
	closed, err := h.store.Close(ctx, id, now)
	if err != nil {
		h.logger.Error("close event failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "Failed to close event")
		return
	}
	if closed && h.notifier != nil {
		h.notifier.EventClosed(ctx, id)
	}
	response.Success(c)
}

// Stats handles GET /api/vendor/stats.
func (h *Handler) Stats(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	stats, err := h.store.Stats(c.Request.Context(), userID, h.now())
	if err != nil {
		h.logger.Error("vendor stats failed", zap.Error(err), zap.String("organizer_id", userID.String()))
		response.Internal(c, "Failed to load stats")
		return
	}
	response.OK(c, stats)
}

// EventOptions is the set of values the event form and feed filters offer.
type EventOptions struct {
	Locations      []models.Location `json:"locations"`
	Categories     []string          `json:"categories"`
	DietaryOptions []string          `json:"dietaryOptions"`
}

// Options handles GET /api/event-options.
func (h *Handler) Options(c *gin.Context) {
	response.OK(c, EventOptions{
		Locations:      models.Locations,
		Categories:     models.Categories,
		DietaryOptions: models.DietaryOptions,
	})
}

// UploadPhoto handles POST /api/events/photo (multipart "file"). Returns the
// public URL to pass as featuredPhoto when creating the event.
func (h *Handler) UploadPhoto(c *gin.Context) {
	if h.images == nil {
		response.ServiceUnavailable(c, "image uploads are not configured")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fh.Size > storage.MaxImageSize {
		response.BadRequest(c, "file must be 5MB or smaller")
		return
	}
	ext, err := storage.ImageExtension(fh.Header.Get("Content-Type"), fh.Filename)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "could not read file")
		return
	}
	defer f.Close()

	userID, _ := middleware.UserID(c)
	key := storage.EventPhotoKey(userID, ext)
	url, err := h.images.Upload(c.Request.Context(), key, storage.ContentTypeForExtension(ext), f, fh.Size)
	if err != nil {
		h.logger.Error("upload event photo failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "Failed to upload photo")
		return
	}
	response.Created(c, gin.H{"url": url})
}
