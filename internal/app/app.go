package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/service/friends"
	"github.com/vovakirdan/linechat-server/internal/service/history"
	"github.com/vovakirdan/linechat-server/internal/store"
	"github.com/vovakirdan/linechat-server/internal/store/memory"
	transporthttp "github.com/vovakirdan/linechat-server/internal/transport/http"
	"github.com/vovakirdan/linechat-server/internal/transport/tcp"
)

// App wires together core and transport layers.
type App struct {
	tcp             *tcp.Server
	http            *stdhttp.Server
	shutdownTimeout time.Duration
	addr            string
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st := memory.New()

	rooms := core.NewRooms()
	directory := core.NewDirectory(rooms, st)
	friendsService := friends.New(st, directory)
	historyService := history.New(st)

	dispatcher := core.NewDispatcher(directory, rooms, friendsService, historyService, core.DispatcherConfig{
		DefaultRoom:  cfg.DefaultRoom,
		HistoryLimit: cfg.HistoryLimit,
	}, logger)
	hub := core.NewHub(dispatcher, logger)

	tcpServer, err := tcp.NewServer(hub, *cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	var httpServer *stdhttp.Server
	if cfg.HTTPAddr != "" {
		httpServer, err = transporthttp.NewServer(transporthttp.Deps{
			Hub:       hub,
			Directory: directory,
			Rooms:     rooms,
			Friends:   friendsService,
			History:   historyService,
		}, *cfg, logger)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	return &App{
		tcp:             tcpServer,
		http:            httpServer,
		shutdownTimeout: cfg.ShutdownTimeout,
		addr:            cfg.Addr,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the listeners and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		a.cleanup()
		return fmt.Errorf("listen tcp %s: %w", a.addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the hub and the HTTP listener and serves line clients on ln.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.hub.Run(ctx)
	}()

	serverErr := make(chan error, 2)
	pending := 1
	go func() {
		serverErr <- a.tcp.Serve(ctx, ln)
	}()

	if a.http != nil {
		pending++
		go func() {
			a.log.Info().Str("addr", a.http.Addr).Msg("http listener started")
			if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				serverErr <- fmt.Errorf("http server: %w", err)
				return
			}
			serverErr <- nil
		}()
	}

	var runErr error
	select {
	case runErr = <-serverErr:
		// One listener stopped on its own, so take the rest down with it.
		pending--
	case <-ctx.Done():
	}
	cancel()

	if a.http != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancelShutdown()

		a.log.Info().Msg("shutting down http server")
		if err := a.http.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = err
		}
	}

	for ; pending > 0; pending-- {
		if err := <-serverErr; err != nil && runErr == nil {
			runErr = err
		}
	}

	wg.Wait()
	a.cleanup()
	return runErr
}

// cleanup closes the store and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
