package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wadjakorntonsri/limitlink/pkg/bootstrap"
	"github.com/wadjakorntonsri/limitlink/pkg/config"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.New(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	logger := app.Logger

	app.Sweeper.Start(cfg.SweepInterval)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.Handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := app.Close(); err != nil {
		logger.Error("release resources", zap.Error(err))
	}
}
