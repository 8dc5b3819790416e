package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fulfillment/internal/database"
	"fulfillment/internal/idempotency"
	"fulfillment/internal/legacy"
	"fulfillment/internal/server"
	"fulfillment/internal/websocket"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "run schema migration before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	db, err := database.NewConnection(cfg.Database, log)
	if err != nil {
		return err
	}
	if autoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
	}

	store := idempotency.NewMemoryStore()
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(cmd.Context()).Err(); err != nil {
			return err
		}
		store = idempotency.NewRedisStore(rdb)
		log.Info("using redis idempotency store", zap.String("addr", cfg.Redis.Addr))
	}

	hub := websocket.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	var legacyClient *legacy.Client
	if cfg.Legacy.BaseURL != "" {
		legacyClient = legacy.NewClient(cfg.Legacy, log)
	}

	router := server.NewRouter(server.Deps{
		Config: cfg,
		DB:     db,
		Log:    log,
		Store:  store,
		Hub:    hub,
		Legacy: legacyClient,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exited properly")
	return nil
}
