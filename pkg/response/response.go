package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON body of every failed request.
type ErrorBody struct {
	Error string `json:"error"`
}

// SuccessBody is the body of write endpoints that return no resource.
type SuccessBody struct {
	Success bool `json:"success"`
}

// AdminBody is the envelope used by the admin console endpoints.
type AdminBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// OK sends a 200 JSON response with data as the body.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 JSON response with data as the body.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Success sends 200 {"success": true}.
func Success(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessBody{Success: true})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends status with {"error": msg}.
func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, ErrorBody{Error: msg})
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	Error(c, http.StatusBadRequest, err)
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	Error(c, http.StatusUnauthorized, err)
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	Error(c, http.StatusForbidden, err)
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	Error(c, http.StatusNotFound, err)
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	Error(c, http.StatusConflict, err)
}

// TooManyRequests sends 429.
func TooManyRequests(c *gin.Context, err string) {
	Error(c, http.StatusTooManyRequests, err)
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	Error(c, http.StatusServiceUnavailable, err)
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	Error(c, http.StatusInternalServerError, err)
}

// AdminOK sends 200 {"ok": true}.
func AdminOK(c *gin.Context) {
	c.JSON(http.StatusOK, AdminBody{OK: true})
}

// AdminError sends status with {"ok": false, "error": msg}.
func AdminError(c *gin.Context, status int, msg string) {
	c.JSON(status, AdminBody{OK: false, Error: msg})
}
