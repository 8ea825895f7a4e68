package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-duel/internal/app"
	"github.com/comitanigiacomo/kanso-duel/internal/platform/config"
	"github.com/comitanigiacomo/kanso-duel/internal/platform/logger"
)

// @title        Kanso Duel API
// @version      1.0
// @description  Task scoring and head-to-head challenges.
// @BasePath     /api/v1
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Critical: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Critical: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.LogLevel >= zap.WarnLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Critical: failed to start", zap.Error(err))
	}
	defer application.Close()

	application.Sweeper.Start(ctx)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	application.Sweeper.TriggerOn(ctx, hup)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      application.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Kanso Duel running", zap.String("addr", "http://localhost:"+cfg.Port), zap.String("storage", string(cfg.Storage)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Critical server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Stop signal received. Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown error", zap.Error(err))
	}

	log.Info("Server stopped gracefully.")
}
