package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Health reports that the process is serving.
// GET /health
func Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
