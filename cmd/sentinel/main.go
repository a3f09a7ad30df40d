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
	"time"

	"sentinel-moderation/internal/analytics"
	"sentinel-moderation/internal/bot"
	"sentinel-moderation/internal/config"
	"sentinel-moderation/internal/modules/audit"
	"sentinel-moderation/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	logger.Info("storage ready", zap.String("dialect", store.Dialect()))

	auditLogger := audit.NewLogger(store, logger.Named("audit"))
	analyticsEngine := analytics.New(store)

	botSvc, err := bot.New(cfg, logger, store, auditLogger, analyticsEngine)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}
	if err := botSvc.Start(ctx); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started", zap.String("scheduler_mode", cfg.Scheduler.Mode))

	group, groupCtx := errgroup.WithContext(ctx)
	if cfg.Health.Enabled {
		server := &http.Server{
			Handler:           healthHandler(store, botSvc),
			ReadHeaderTimeout: 5 * time.Second,
		}
		group.Go(func() error {
			listener, err := net.Listen("tcp", cfg.Health.Addr)
			if err != nil {
				return fmt.Errorf("health listen: %w", err)
			}
			if cfg.Health.MaxConns > 0 {
				listener = netutil.LimitListener(listener, cfg.Health.MaxConns)
			}
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	<-groupCtx.Done()
	logger.Info("shutdown requested")
	stop()
	if err := group.Wait(); err != nil {
		logger.Error("health server error", zap.Error(err))
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	botSvc.Close(closeCtx)
}

func healthHandler(store *storage.Store, botSvc *bot.Bot) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "ok pending=%d\n", botSvc.Scheduler().PendingCount())
	})
	return mux
}
