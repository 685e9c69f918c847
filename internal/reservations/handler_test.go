package reservations

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
)

func newTestRouter(f *fixture, caller uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(f.svc, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if caller != uuid.Nil {
			c.Set(middleware.ContextUserID, caller)
		}
		c.Next()
	})
	r.GET("/api/event-foods", h.Foods)
	r.POST("/api/reservations", h.Reserve)
	r.GET("/api/reservations", h.List)
	r.PATCH("/api/reservations/:id", h.UpdateStatus)
	r.GET("/api/vendor/events/:id/reservations", h.EventReservations)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestHandlerReserve(t *testing.T) {
	f := newFixture(t)
	food := f.store.addFood(f.eventID, "Pizza", 2, 1)
	student := uuid.New()
	r := newTestRouter(f, student)

	w := doJSON(t, r, http.MethodPost, "/api/reservations", gin.H{"eventFoodId": food.String()})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/reservations", gin.H{"eventFoodId": food.String(), "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You can only reserve up to 1 portion(s) of this item", errorOf(t, w))

	w = doJSON(t, r, http.MethodPost, "/api/reservations", gin.H{"eventFoodId": food.String(), "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "eventFoodId and positive quantity are required", errorOf(t, w))

	w = doJSON(t, r, http.MethodPost, "/api/reservations", gin.H{"eventFoodId": food.String(), "quantity": int64(1) << 40})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "eventFoodId and positive quantity are required", errorOf(t, w))

	w = doJSON(t, r, http.MethodPost, "/api/reservations", gin.H{"eventFoodId": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Food item not found", errorOf(t, w))
}

func TestHandlerReserveCapacityMessage(t *testing.T) {
	f := newFixture(t)
	food := f.store.addFood(f.eventID, "Pizza", 3, 5)
	require.NoError(t, f.svc.Reserve(context.Background(), uuid.New(), food, 2))

	w := doJSON(t, newTestRouter(f, uuid.New()), http.MethodPost, "/api/reservations", gin.H{"eventFoodId": food.String(), "quantity": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Not enough portions left for this item (1 remaining)", errorOf(t, w))
}

func TestHandlerReserveEndedEvent(t *testing.T) {
	f := newFixture(t)
	past := f.store.addEvent(f.organizer, testNow.Add(-time.Hour))
	food := f.store.addFood(past, "Donuts", 3, 1)

	w := doJSON(t, newTestRouter(f, uuid.New()), http.MethodPost, "/api/reservations", gin.H{"eventFoodId": food.String()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "This event has already ended", errorOf(t, w))
}

func TestHandlerFoods(t *testing.T) {
	f := newFixture(t)
	f.store.addFood(f.eventID, "Pizza", 5, 2)

	anon := newTestRouter(f, uuid.Nil)
	w := doJSON(t, anon, http.MethodGet, "/api/event-foods?eventId=undefined", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"foods":[]}`, w.Body.String())

	w = doJSON(t, anon, http.MethodGet, "/api/event-foods?eventId="+f.eventID.String(), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, newTestRouter(f, uuid.New()), http.MethodGet, "/api/event-foods?eventId="+f.eventID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Foods []struct {
			Name          string `json:"name"`
			TotalPortions int    `json:"totalPortions"`
			UserQuantity  int    `json:"userQuantity"`
		} `json:"foods"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Foods, 1)
	assert.Equal(t, "Pizza", body.Foods[0].Name)
	assert.Equal(t, 5, body.Foods[0].TotalPortions)
}

func TestHandlerUpdateStatus(t *testing.T) {
	f := newFixture(t)
	food := f.store.addFood(f.eventID, "Pizza", 5, 2)
	student := uuid.New()
	require.NoError(t, f.svc.Reserve(context.Background(), student, food, 1))
	list, err := f.svc.ListForStudent(context.Background(), student)
	require.NoError(t, err)
	path := "/api/reservations/" + list[0].ID.String()

	w := doJSON(t, newTestRouter(f, student), http.MethodPatch, path, gin.H{"status": "in_progress"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, newTestRouter(f, student), http.MethodPatch, path, gin.H{"status": "picked_up"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, newTestRouter(f, f.organizer), http.MethodPatch, path, gin.H{"status": "picked_up"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}

func TestHandlerEventReservationsForbidden(t *testing.T) {
	f := newFixture(t)
	w := doJSON(t, newTestRouter(f, uuid.New()), http.MethodGet, "/api/vendor/events/"+f.eventID.String()+"/reservations", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You are not the organizer for this event", errorOf(t, w))
}
