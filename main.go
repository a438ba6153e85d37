package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "quickcheck-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envErr := loadEnvFile()
	cfg := loadConfig()
	log, err := newLogger(cfg.AppEnv)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	if envErr != nil {
		log.Warn("No .env file found, using system env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := newDocumentStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init %s store: %w", cfg.StoreDriver, err)
	}
	if pg, ok := backend.(*postgresStore); ok {
		defer pg.Close()
	}
	log.Info("Document store ready", zap.String("driver", cfg.StoreDriver))

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))
	router.SetTrustedProxies(nil)

	h := newHandler(newSessionCache(backend, log), log, cfg)
	h.registerRoutes(router)

	srv := &http.Server{Addr: cfg.HTTPAddress, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting gin app", zap.String("addr", cfg.HTTPAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
