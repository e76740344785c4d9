package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aaronzipp/retroboard/internal/catalog"
	"github.com/aaronzipp/retroboard/internal/config"
	"github.com/aaronzipp/retroboard/internal/handlers"
	"github.com/aaronzipp/retroboard/internal/logging"
	"github.com/aaronzipp/retroboard/internal/room"
	"github.com/aaronzipp/retroboard/internal/store"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	source, err := newSource(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rooms := store.NewRoomStore(source, store.Options{
		IdleTTL:       cfg.RoomIdleTTL,
		LookupTimeout: cfg.CatalogTimeout,
		Room: room.Options{
			StrictStageGate: cfg.StrictStageGate,
		},
		Logger: logger,
	})
	rooms.StartReaper(ctx, cfg.ReaperInterval)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: handlers.NewRouter(handlers.NewContext(rooms, cfg, logger)),
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("server starting")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown; closing the
	// rooms sends them 1001.
	rooms.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newSource picks the session catalog: the HTTP collaborator when a URL is
// configured, otherwise rooms are created on demand from the default template
func newSource(cfg config.Config, logger zerolog.Logger) (catalog.Source, error) {
	templates, err := catalog.LoadTemplates(cfg.TemplatesFile)
	if err != nil {
		return nil, err
	}
	templates.SetDefaultVotingLimit(cfg.DefaultVotingLimit)

	if cfg.CatalogURL == "" {
		logger.Info().Str("template", templates.DefaultName()).Msg("no catalog configured, rooms are created on demand")
		return catalog.TemplateSource{Templates: templates}, nil
	}
	logger.Info().Str("catalog", cfg.CatalogURL).Msg("using session catalog")
	return catalog.NewHTTPSource(cfg.CatalogURL, templates, cfg.CatalogTimeout), nil
}
