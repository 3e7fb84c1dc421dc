package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/core"
)

// UserHandlers provides read-only HTTP handlers over the live user directory.
type UserHandlers struct {
	directory *core.Directory
	log       *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(dir *core.Directory, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		directory: dir,
		log:       logger,
	}
}

// UsersResponse lists usernames in registration order.
type UsersResponse struct {
	Users []string `json:"users"`
}

// StatusResponse is the presence of one user.
type StatusResponse struct {
	Username string `json:"username"`
	Status   string `json:"status"`
}

// ListUsers returns online users, optionally filtered by a case-sensitive
// substring.
// GET /api/users?q=<substr>
func (h *UserHandlers) ListUsers(c *gin.Context) {
	var users []string
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		users = h.directory.Search(q)
	} else {
		users = h.directory.List("")
	}
	if users == nil {
		users = []string{}
	}

	h.log.Debug().Int("count", len(users)).Msg("users listed")
	c.JSON(http.StatusOK, UsersResponse{Users: users})
}

// UserStatus returns the last known presence of a user.
// GET /api/users/:name/status
func (h *UserHandlers) UserStatus(c *gin.Context) {
	name := c.Param("name")

	p, err := h.directory.Status(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("user", name).Msg("failed to read status")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Username: name, Status: string(p)})
}
