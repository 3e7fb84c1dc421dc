package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/service/friends"
)

// FriendsHandlers exposes the friend graph for inspection.
type FriendsHandlers struct {
	service *friends.Service
	log     *zerolog.Logger
}

// NewFriendsHandlers creates a new friends handlers instance.
func NewFriendsHandlers(svc *friends.Service, logger *zerolog.Logger) *FriendsHandlers {
	return &FriendsHandlers{
		service: svc,
		log:     logger,
	}
}

// FriendsResponse lists a user's friends in insertion order.
type FriendsResponse struct {
	Username string   `json:"username"`
	Friends  []string `json:"friends"`
}

// ListFriends returns the friends of a user. Unknown users have no friends.
// GET /api/users/:name/friends
func (h *FriendsHandlers) ListFriends(c *gin.Context) {
	name := c.Param("name")

	list, err := h.service.List(c.Request.Context(), name)
	if err != nil {
		h.log.Error().Err(err).Str("user", name).Msg("failed to list friends")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if list == nil {
		list = []string{}
	}
	c.JSON(http.StatusOK, FriendsResponse{Username: name, Friends: list})
}
