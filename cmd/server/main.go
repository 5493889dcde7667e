package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wordwire/internal/chat"
	"wordwire/internal/config"
	"wordwire/internal/dispatch"
	"wordwire/internal/game"
	"wordwire/internal/httpapi"
	"wordwire/internal/logging"
	"wordwire/internal/pair"
	"wordwire/internal/presence"
	"wordwire/internal/rules"
	"wordwire/internal/store"
	"wordwire/internal/tourney"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.LogLevel)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var archive *store.Store
	if cfg.DatabaseURL != "" {
		archive, err = store.Open(cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal("opening store", zap.Error(err))
		}
	}

	registry := dispatch.NewRegistry(log)
	games := game.NewManager(ctx, game.ManagerParams{
		Emitter:       registry,
		Judge:         rules.Passthrough{},
		Archiver:      gameArchiver(archive),
		Log:           log,
		SweepInterval: cfg.SweepInterval,
	})
	tourneys := tourney.NewManager(tourney.ManagerParams{
		Pairer:   pair.New(cfg.PairingSeed),
		Emitter:  registry,
		Starter:  games,
		Archiver: divisionArchiver(archive),
		Log:      log,
	})
	d := dispatch.New(dispatch.Params{
		Registry: registry,
		Presence: presence.NewTracker(),
		Chat:     chat.NewManager(cfg.ChatRetention),
		Games:    games,
		Tourneys: tourneys,
		Log:      log,
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.SetupRoutes(d, tourneys, divisionLoader(archive), log),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tourneys.Run(ctx, games.TournamentEvents())
		return nil
	})
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		games.Stop()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

// gameArchiver and divisionArchiver keep a nil *store.Store from becoming a
// non-nil interface value inside the managers.
func gameArchiver(s *store.Store) game.Archiver {
	if s == nil {
		return nil
	}
	return s
}

func divisionArchiver(s *store.Store) tourney.SnapshotArchiver {
	if s == nil {
		return nil
	}
	return s
}

func divisionLoader(s *store.Store) httpapi.DivisionLoader {
	if s == nil {
		return nil
	}
	return s
}
