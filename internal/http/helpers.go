package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the standard envelope for all API responses.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// respondOK sends a 200 OK response with a message and optional data.
func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, Response{Success: true, Message: message, Data: data})
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Message: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, Response{Success: false, Message: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 response. The
// actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, Response{Success: false, Message: "internal server error"})
}

// setCodeParam extracts and validates the set code URL parameter.
func setCodeParam(c *gin.Context) (string, bool) {
	code := c.Param("code")
	if code == "" || len(code) > 10 {
		respondBadRequest(c, "invalid set code")
		return "", false
	}
	return code, true
}
