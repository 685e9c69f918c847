package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkbytes/foodfinder/internal/middleware"
	"github.com/sparkbytes/foodfinder/internal/models"
	"github.com/sparkbytes/foodfinder/pkg/queue"
)

type fakeStore struct {
	events    map[uuid.UUID]*models.Event
	foods     map[uuid.UUID][]models.EventFood
	lastQuery ListFilter
	closes    int
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: make(map[uuid.UUID]*models.Event), foods: make(map[uuid.UUID][]models.EventFood)}
}

func (s *fakeStore) Create(_ context.Context, e *models.Event, foods []models.EventFood) error {
	if s.createErr != nil {
		return s.createErr
	}
	e.ID = uuid.New()
	s.events[e.ID] = e
	s.foods[e.ID] = foods
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *fakeStore) List(_ context.Context, f ListFilter) ([]models.Event, error) {
	s.lastQuery = f
	out := []models.Event{}
	for _, e := range s.events {
		if f.OrganizerID != nil && e.OrganizerID != *f.OrganizerID {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *fakeStore) Close(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	e := s.events[id]
	if !e.EndTime.After(at) {
		return false, nil
	}
	e.EndTime = at
	s.closes++
	return true, nil
}

func (s *fakeStore) OrganizerName(context.Context, uuid.UUID) (string, error) {
	return "BU Dining", nil
}

func (s *fakeStore) Stats(context.Context, uuid.UUID, time.Time) (*Stats, error) {
	return &Stats{RecentEvents: []models.Event{}}, nil
}

type fakeQueue struct{ jobs []queue.GeocodeEventPayload }

func (q *fakeQueue) EnqueueGeocodeEvent(_ context.Context, p queue.GeocodeEventPayload) error {
	q.jobs = append(q.jobs, p)
	return nil
}

type fakeNotifier struct{ closed []uuid.UUID }

func (n *fakeNotifier) EventClosed(_ context.Context, id uuid.UUID) { n.closed = append(n.closed, id) }

var handlerNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newHandlerRouter(store *fakeStore, q *fakeQueue, n *fakeNotifier, caller uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, q, nil, n, time.UTC, nil)
	h.now = func() time.Time { return handlerNow }
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if caller != uuid.Nil {
			c.Set(middleware.ContextUserID, caller)
			c.Set(middleware.ContextUserEmail, "org@bu.edu")
		}
		c.Next()
	})
	r.POST("/api/events", h.Create)
	r.POST("/api/events/photo", h.UploadPhoto)
	r.GET("/api/events", h.List)
	r.GET("/api/events/:id", h.Get)
	r.PATCH("/api/vendor/events/:id/close", h.Close)
	r.GET("/api/vendor/stats", h.Stats)
	r.GET("/api/event-options", h.Options)
	return r
}

func send(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (s *fakeStore) add(organizer uuid.UUID, start, end time.Time) uuid.UUID {
	id := uuid.New()
	s.events[id] = &models.Event{ID: id, OrganizerID: organizer, Name: "Bagels", StartTime: start, EndTime: end}
	return id
}

func TestCreateEvent(t *testing.T) {
	store, q := newFakeStore(), &fakeQueue{}
	organizer := uuid.New()
	r := newHandlerRouter(store, q, &fakeNotifier{}, organizer)

	w := send(r, http.MethodPost, "/api/events", validRequest())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Success bool      `json:"success"`
		EventID uuid.UUID `json:"eventId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)

	e := store.events[body.EventID]
	require.NotNil(t, e)
	assert.Equal(t, organizer, e.OrganizerID)
	assert.Equal(t, "BU Dining", e.OrganizerName)
	assert.Len(t, store.foods[body.EventID], 1)

	require.Len(t, q.jobs, 1, "events without coordinates are geocoded")
	assert.Equal(t, body.EventID, q.jobs[0].EventID)
	assert.Equal(t, "775 Commonwealth Ave", q.jobs[0].Address)
}

func TestCreateEventWithCoordinatesSkipsGeocode(t *testing.T) {
	store, q := newFakeStore(), &fakeQueue{}
	r := newHandlerRouter(store, q, &fakeNotifier{}, uuid.New())

	req := validRequest()
	lat, lng := 42.35, -71.1
	req.Lat, req.Lng = &lat, &lng
	w := send(r, http.MethodPost, "/api/events", req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, q.jobs)
}

func TestCreateEventValidationError(t *testing.T) {
	store := newFakeStore()
	r := newHandlerRouter(store, &fakeQueue{}, &fakeNotifier{}, uuid.New())

	req := validRequest()
	req.FoodItems = nil
	w := send(r, http.MethodPost, "/api/events", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Add at least one food item"}`, w.Body.String())
	assert.Empty(t, store.events)
}

func TestListEvents(t *testing.T) {
	store := newFakeStore()
	me := uuid.New()
	store.add(me, handlerNow.Add(-time.Hour), handlerNow.Add(time.Hour))
	store.add(uuid.New(), handlerNow.Add(time.Hour), handlerNow.Add(2*time.Hour))

	w := send(newHandlerRouter(store, nil, nil, uuid.Nil), http.MethodGet, "/api/events?vendorOnly=true", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(newHandlerRouter(store, nil, nil, me), http.MethodGet, "/api/events?vendorOnly=true&category=Lunch&q=bag", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Events []struct {
			Availability string `json:"availability"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, "available-now", body.Events[0].Availability)
	assert.Equal(t, "Lunch", store.lastQuery.Category)
	assert.Equal(t, "bag", store.lastQuery.Query)

	w = send(newHandlerRouter(store, nil, nil, uuid.Nil), http.MethodGet, "/api/events", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Events, 2)
}

func TestGetEvent(t *testing.T) {
	store := newFakeStore()
	id := store.add(uuid.New(), handlerNow.Add(-3*time.Hour), handlerNow.Add(-time.Hour))
	r := newHandlerRouter(store, nil, nil, uuid.Nil)

	w := send(r, http.MethodGet, "/api/events/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"availability":"ending-soon"`)

	w = send(r, http.MethodGet, "/api/events/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCloseEvent(t *testing.T) {
	store, n := newFakeStore(), &fakeNotifier{}
	owner := uuid.New()
	id := store.add(owner, handlerNow.Add(-time.Hour), handlerNow.Add(time.Hour))
	path := "/api/vendor/events/" + id.String() + "/close"

	w := send(newHandlerRouter(store, nil, n, uuid.New()), http.MethodPatch, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = send(newHandlerRouter(store, nil, n, owner), http.MethodPatch, "/api/vendor/events/"+uuid.NewString()+"/close", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	r := newHandlerRouter(store, nil, n, owner)
	w = send(r, http.MethodPatch, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Equal(t, handlerNow, store.events[id].EndTime)
	assert.Equal(t, []uuid.UUID{id}, n.closed)

	// already ended: no-op success
	w = send(r, http.MethodPatch, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.closes)
	assert.Len(t, n.closed, 1)
}

func TestUploadPhotoWithoutStorage(t *testing.T) {
	w := send(newHandlerRouter(newFakeStore(), nil, nil, uuid.New()), http.MethodPost, "/api/events/photo", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestVendorStats(t *testing.T) {
	w := send(newHandlerRouter(newFakeStore(), nil, nil, uuid.New()), http.MethodGet, "/api/vendor/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalEvents":0,"currentEvents":0,"pastEvents":0,"recentEvents":[]}`, w.Body.String())
}

func TestEventOptions(t *testing.T) {
	w := send(newHandlerRouter(newFakeStore(), nil, nil, uuid.Nil), http.MethodGet, "/api/event-options", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body EventOptions
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.Categories, body.Categories)
	assert.Equal(t, models.DietaryOptions, body.DietaryOptions)
	require.Len(t, body.Locations, len(models.Locations))
	assert.Equal(t, "george-sherman-union", body.Locations[1].Code)
	assert.Contains(t, w.Body.String(), `"value":"central-campus"`)
}
