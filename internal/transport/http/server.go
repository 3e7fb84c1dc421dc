package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/service/friends"
	"github.com/vovakirdan/linechat-server/internal/service/history"
)

// Deps are the components the HTTP layer reads from.
type Deps struct {
	Hub       *core.Hub
	Directory *core.Directory
	Rooms     *core.Rooms
	Friends   *friends.Service
	History   *history.Service
}

// NewServer builds the HTTP server: read-only inspection API plus the
// WebSocket line bridge. /ws is mounted on the outer mux, outside gin, so the
// upgrade can hijack the raw connection.
func NewServer(deps Deps, cfg config.Config, logger *zerolog.Logger) (*stdhttp.Server, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	policy, err := core.ParseOverflowPolicy(cfg.OverflowPolicy)
	if err != nil {
		return nil, fmt.Errorf("http server: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	users := NewUserHandlers(deps.Directory, logger)
	friendsHandlers := NewFriendsHandlers(deps.Friends, logger)
	rooms := NewRoomHandlers(deps.Rooms, deps.History, cfg.HistoryLimit, logger)
	ws := NewWSHandler(deps.Hub, WSOptions{
		OutboundBuffer:    cfg.OutboundBuffer,
		Overflow:          policy,
		MaxLineBytes:      cfg.MaxLineBytes,
		MessagesPerMinute: cfg.MessagesPerMinute,
	}, logger)

	router.GET("/health", Health)

	api := router.Group("/api")
	{
		api.GET("/users", users.ListUsers)
		api.GET("/users/:name/status", users.UserStatus)
		api.GET("/users/:name/friends", friendsHandlers.ListFriends)
		api.GET("/rooms", rooms.ListRooms)
		api.GET("/rooms/:name/history", rooms.RoomHistory)
	}

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}, nil
}
