// Command synq-devserver serves an in-memory todo API for trying the synq
// client against a real HTTP backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/five82/synq/internal/devserver"
	"github.com/five82/synq/internal/logging"
	"github.com/five82/synq/internal/remote"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:7489", "listen address")
	failRate := flag.Float64("fail-rate", 0, "fraction of requests answered with 503 (0-1)")
	latency := flag.Duration("latency", 0, "delay added to every request")
	seed := flag.Bool("seed", true, "start with a few sample todos")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger, err := logging.New(*logLevel, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "synq-devserver: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(gin.ReleaseMode)
	opts := []devserver.Option{
		devserver.WithLogger(logger),
		devserver.WithFailRate(*failRate),
		devserver.WithLatency(*latency),
	}
	if *seed {
		opts = append(opts, devserver.WithSeed(sampleTodos()))
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           devserver.New(opts...).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			return 1
		}
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
		return 1
	}
	logger.Info("stopped")
	return 0
}

func sampleTodos() []remote.Todo {
	return []remote.Todo{
		{Title: "Try adding a todo", Priority: 1},
		{Title: "Toggle me with space"},
		{Title: "Already done", Completed: true},
	}
}
