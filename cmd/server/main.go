package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/truco-backend/internal/config"
	"github.com/DoyleJ11/truco-backend/internal/httpapi"
	"github.com/DoyleJ11/truco-backend/internal/hub"
	"github.com/DoyleJ11/truco-backend/internal/room"
	"github.com/DoyleJ11/truco-backend/internal/store"
)

type rankingStore interface {
	room.Recorder
	httpapi.RankingReader
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rank rankingStore
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer db.Close()
		rank = db
	} else {
		log.Warn("DATABASE_URL not set, ranking is kept in memory")
		rank = store.NewMemory()
	}

	h := hub.NewHub(ctx, log)
	rooms := room.NewService(h, rank, log)

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     httpapi.SetupRoutes(h, rooms, rank, log),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
