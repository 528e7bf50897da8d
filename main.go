package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dselans/music-catalog/backends/lock"
	"github.com/dselans/music-catalog/config"
	"github.com/dselans/music-catalog/deps"
	"github.com/dselans/music-catalog/services/ingest"
)

var (
	version = "v0.0.0"
)

const (
	newRelicShutdownTimeout = 10 * time.Second
)

func main() {
	cfg := config.New(version)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("unable to validate config: %s", err)
	}

	d, err := deps.New(cfg)
	if err != nil {
		log.Fatalf("Could not setup dependencies: %s", err)
	}

	os.Exit(run(d))
}

// run performs one ingest under the writer lock and returns the exit code.
func run(d *deps.Dependencies) int {
	logger := d.Log.With(zap.String("method", "run"), zap.String("version", version))
	logger.Debug("Starting with config", zap.Any("config", d.Config.GetMap()))

	ctx, stop := signal.NotifyContext(d.ShutdownCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer d.ShutdownCancel()

	if d.NewRelicApp != nil {
		defer d.NewRelicApp.Shutdown(newRelicShutdownTimeout)
	}

	if err := d.LockBackend.Acquire(ctx); err != nil {
		if errors.Is(err, lock.ErrLocked) {
			logger.Error("Another ingest run holds the catalog lock", zap.String("lock", d.LockBackend.Name()))
		} else {
			logger.Error("Unable to acquire catalog lock", zap.Error(err))
		}

		return 1
	}

	defer func() {
		// Release must succeed even when ctx was cancelled by a signal
		if err := d.LockBackend.Release(context.Background()); err != nil {
			logger.Warn("Unable to release catalog lock", zap.Error(err))
		}
	}()

	report, err := d.RunnerService.Run(ctx)
	if report != nil {
		fmt.Println(ingest.RenderReport(report))
	}

	if err != nil {
		logger.Error("Ingest run aborted", zap.Error(err))
		return 1
	}

	if failed := report.Failed(); len(failed) > 0 {
		logger.Error("Ingest run finished with failed connectors", zap.Int("failed", len(failed)))
		return 1
	}

	return 0
}
