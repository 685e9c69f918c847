package profiles

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
	"github.com/sparkbytes/foodfinder/pkg/response"
	"github.com/sparkbytes/foodfinder/pkg/storage"
	"github.com/sparkbytes/foodfinder/pkg/utils"
)

// Store is the profile persistence.
type Store interface {
	Student(ctx context.Context, userID uuid.UUID) (*models.StudentProfile, error)
	SaveStudent(ctx context.Context, p *models.StudentProfile) error
	Vendor(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error)
	SaveVendor(ctx context.Context, p *models.VendorProfile) error
	SetAvatar(ctx context.Context, userID uuid.UUID, url string, vendor bool) error
}

// ImageStore uploads and removes profile pictures.
type ImageStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	Delete(ctx context.Context, key string) error
}

// Handler serves profile endpoints.
type Handler struct {
	store  Store
	images ImageStore
	now    func() time.Time
	logger *zap.Logger
}

// NewHandler creates a profile handler. images may be nil when uploads are
// not configured.
func NewHandler(store Store, images ImageStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, images: images, now: time.Now, logger: logger}
}

// StudentRequest is the body of PUT /api/profile.
type StudentRequest struct {
	DisplayName         string   `json:"display_name"`
	Bio                 string   `json:"bio"`
	Major               string   `json:"major"`
	Year                string   `json:"year"`
	DietaryPreferences  []string `json:"dietary_preferences"`
	NotificationEnabled *bool    `json:"notification_enabled"`
}

// VendorRequest is the body of PUT /api/vendor/profile.
type VendorRequest struct {
	OrgName      string `json:"org_name"`
	ContactEmail string `json:"contact_email"`
	Website      string `json:"website"`
	Description  string `json:"description"`
}

// Get handles GET /api/profile.
func (h *Handler) Get(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	ctx := c.Request.Context()

	student, err := h.store.Student(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		student = &models.StudentProfile{ID: userID, DietaryPreferences: []string{}, NotificationEnabled: true}
	} else if err != nil {
		h.logger.Error("get student profile failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "Failed to load profile")
		return
	}

	out := gin.H{"profile": student, "email": middleware.UserEmail(c)}
	vendor, err := h.store.Vendor(ctx, userID)
	switch {
	case err == nil:
		out["vendor"] = vendor
	case !errors.Is(err, ErrProfileNotFound):
		h.logger.Error("get vendor profile failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "Failed to load profile")
		return
	}
	response.OK(c, out)
}

// UpdateStudent handles PUT /api/profile.
func (h *Handler) UpdateStudent(c *gin.Context) {
	var req StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, _ := middleware.UserID(c)
	p := &models.StudentProfile{
		ID:                  userID,
		DisplayName:         trimmed(req.DisplayName),
		Bio:                 trimmed(req.Bio),
		Major:               trimmed(req.Major),
		Year:                trimmed(req.Year),
		DietaryPreferences:  cleanList(req.DietaryPreferences),
		NotificationEnabled: req.NotificationEnabled == nil || *req.NotificationEnabled,
	}
	if err := h.store.SaveStudent(c.Request.Context(), p); err != nil {
		h.logger.Error("save student profile failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "Failed to save profile")
		return
	}
	response.OK(c, gin.H{"profile": p})
}

// UpdateVendor handles PUT /api/vendor/profile.
func (h *Handler) UpdateVendor(c *gin.Context) {
	var req VendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, _ := middleware.UserID(c)
	p := &models.VendorProfile{
		ID:           userID,
		OrgName:      strings.TrimSpace(req.OrgName),
		ContactEmail: strings.TrimSpace(req.ContactEmail),
		Website:      utils.NormalizeWebsite(req.Website),
		Description:  strings.TrimSpace(req.Description),
	}
	if p.OrgName == "" || p.Description == "" {
		response.BadRequest(c, "Organization name and description are required")
		return
	}
	if p.ContactEmail == "" {
		p.ContactEmail = middleware.UserEmail(c)
	}
	if err := h.store.SaveVendor(c.Request.Context(), p); err != nil {
		h.logger.Error("save vendor profile failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "Failed to save profile")
		return
	}
	response.OK(c, gin.H{"vendor": p})
}

// UploadAvatar handles POST /api/profile/avatar (multipart "file"). The picture
// goes on the vendor profile for organizers, on the student profile otherwise.
func (h *Handler) UploadAvatar(c *gin.Context) {
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
	ctx := c.Request.Context()
	key := storage.AvatarKey(userID, h.now(), ext)
	url, err := h.images.Upload(ctx, key, storage.ContentTypeForExtension(ext), f, fh.Size)
	if err != nil {
		h.logger.Error("upload avatar failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "Failed to upload avatar")
		return
	}

	vendor := middleware.UserRoles(c).Has(models.RoleOrganizer)
	if err := h.store.SetAvatar(ctx, userID, url, vendor); err != nil {
		if delErr := h.images.Delete(ctx, key); delErr != nil {
			h.logger.Warn("remove orphaned avatar failed", zap.Error(delErr), zap.String("key", key))
		}
		if errors.Is(err, ErrProfileNotFound) {
			response.NotFound(c, "Profile not found")
			return
		}
		h.logger.Error("set avatar failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "Failed to save avatar")
		return
	}
	response.OK(c, gin.H{"avatar_url": url})
}

func trimmed(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
