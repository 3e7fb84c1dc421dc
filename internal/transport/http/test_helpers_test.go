package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/service/friends"
	"github.com/vovakirdan/linechat-server/internal/service/history"
	"github.com/vovakirdan/linechat-server/internal/store/memory"
)

type testServer struct {
	*httptest.Server
	deps  Deps
	store *memory.MemoryStore
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.ReadHeaderTimeout = time.Second

	st := memory.New()
	t.Cleanup(func() { st.Close() })

	rooms := core.NewRooms()
	dir := core.NewDirectory(rooms, st)
	fr := friends.New(st, dir)
	hist := history.New(st)
	d := core.NewDispatcher(dir, rooms, fr, hist, core.DispatcherConfig{
		DefaultRoom:  cfg.DefaultRoom,
		HistoryLimit: cfg.HistoryLimit,
	}, nil)
	hub := core.NewHub(d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	deps := Deps{Hub: hub, Directory: dir, Rooms: rooms, Friends: fr, History: hist}
	server, err := NewServer(deps, cfg, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})

	return &testServer{Server: ts, deps: deps, store: st}
}
