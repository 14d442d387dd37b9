package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"taskverse/internal/api"
	"taskverse/internal/config"
	"taskverse/internal/db"
	"taskverse/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("config: %v", err)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fatal("logging: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	handle, err := db.Open(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal("open store", "store", cfg.Store, "err", err)
	}
	logger.Info("store ready", "store", handle.Kind)

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.New(handle.Store,
			api.WithLogger(logger),
			api.WithCORSOrigin(cfg.CORSOrigin),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("taskverse listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", "err", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			// HTTP must drain before the store closes.
			"server": func(ctx context.Context) error {
				logger.Info("shutting down http server")
				httpErr := srv.Shutdown(ctx)
				logger.Info("closing store", "store", handle.Kind)
				return errors.Join(httpErr, handle.Close(ctx))
			},
		},
	)

	exitCode := <-wait
	logger.Info("shutdown complete", "exit_code", exitCode)
	os.Exit(exitCode)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
