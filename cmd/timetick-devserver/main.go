package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/steveljko/timetick/internal/config"
	"github.com/steveljko/timetick/internal/devserver"
)

func main() {
	configFile := flag.String("config", "", "config file (default $XDG_CONFIG_HOME/timetick/timetick.yaml)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if err := run(*configFile, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configFile string, logger *slog.Logger) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	token := cfg.DevserverToken
	if token == "" {
		token = uuid.NewString()
		logger.Info("generated bearer token", "token", token)
	}

	srv := &http.Server{
		Addr:              cfg.DevserverAddr,
		Handler:           devserver.New(token, devserver.WithLogger(logger)).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("devserver listening", "addr", cfg.DevserverAddr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
