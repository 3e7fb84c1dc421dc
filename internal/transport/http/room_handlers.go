package http

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/service/history"
)

const maxHistoryLimit = 500

// RoomHandlers provides read-only HTTP handlers for rooms and their transcripts.
type RoomHandlers struct {
	rooms        *core.Rooms
	history      *history.Service
	defaultLimit int
	log          *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(rooms *core.Rooms, hist *history.Service, defaultLimit int, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		rooms:        rooms,
		history:      hist,
		defaultLimit: defaultLimit,
		log:          logger,
	}
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// HistoryResponse carries the formatted transcript of a room.
type HistoryResponse struct {
	Room  string   `json:"room"`
	Total int      `json:"total"`
	Lines []string `json:"lines"`
}

// ListRooms returns every room ever created, sorted by name.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	snap := h.rooms.Snapshot()

	response := make([]RoomResponse, 0, len(snap))
	for name, members := range snap {
		if members == nil {
			members = []string{}
		}
		response = append(response, RoomResponse{Name: name, Members: members})
	}
	sort.Slice(response, func(i, j int) bool { return response[i].Name < response[j].Name })

	h.log.Debug().Int("room_count", len(response)).Msg("rooms listed")
	c.JSON(http.StatusOK, response)
}

// RoomHistory returns the newest transcript lines of a room, oldest first.
// Rooms nobody ever joined are 404.
// GET /api/rooms/:name/history?limit=N
func (h *RoomHandlers) RoomHistory(c *gin.Context) {
	room := c.Param("name")
	if !h.rooms.Exists(room) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	ctx := c.Request.Context()
	lines, err := h.history.RoomTranscript(ctx, room, limit)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("failed to read history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	total, err := h.history.RoomCount(ctx, room)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("failed to count history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if lines == nil {
		lines = []string{}
	}

	c.JSON(http.StatusOK, HistoryResponse{Room: room, Total: total, Lines: lines})
}
