// Package ingest runs the source connectors in order and applies each batch
// to the catalog store before the next connector starts.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dselans/music-catalog/catalog"
	"github.com/dselans/music-catalog/clog"
	"github.com/dselans/music-catalog/services"
	"github.com/dselans/music-catalog/util"
)

type IRunner interface {
	// Run executes every connector and returns the per-connector results.
	// The error is non-nil only when the run itself could not proceed.
	Run(ctx context.Context) (*Report, error)
}

type Options struct {
	Connectors []services.IConnector
	Store      catalog.Store

	// DryRun fetches and merges but never persists.
	DryRun bool

	// NewRelic is optional; without it no transactions are recorded.
	NewRelic *newrelic.Application
	Log      clog.ICustomLog
}

type Runner struct {
	opts *Options
	log  clog.ICustomLog
}

func New(opts *Options) (*Runner, error) {
	if err := validateOptions(opts); err != nil {
		return nil, errors.Wrap(err, "failed to validate options")
	}

	return &Runner{
		opts: opts,
		log:  opts.Log.With(zap.String("pkg", "ingest")),
	}, nil
}

func validateOptions(opts *Options) error {
	if opts == nil {
		return errors.New("options cannot be nil")
	}

	if opts.Store == nil {
		return errors.New("store cannot be nil")
	}

	if opts.Log == nil {
		return errors.New("log cannot be nil")
	}

	for i, c := range opts.Connectors {
		if c == nil {
			return errors.Errorf("connector %d cannot be nil", i)
		}
	}

	return nil
}

func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runID := uuid.New().String()
	logger := r.log.With(zap.String("method", "Run"), zap.String("run_id", runID))

	store := r.opts.Store
	if r.opts.DryRun {
		store = catalog.ReadOnly(store)
	}

	report := &Report{
		RunID:     runID,
		DryRun:    r.opts.DryRun,
		StartedAt: time.Now(),
	}

	logger.Info("Starting ingest run",
		zap.Int("connectors", len(r.opts.Connectors)),
		zap.Bool("dryRun", r.opts.DryRun))

	for _, c := range r.opts.Connectors {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(report.StartedAt)
			return report, errors.Wrap(err, "ingest run cancelled")
		}

		result := r.runConnector(ctx, store, c, runID, logger.With(zap.String("source", c.Name())))
		report.Results = append(report.Results, result)
	}

	report.Duration = time.Since(report.StartedAt)

	logger.Info("Ingest run complete",
		zap.Int("failed", len(report.Failed())),
		zap.Duration("duration", report.Duration))

	return report, nil
}

func (r *Runner) runConnector(
	ctx context.Context,
	store catalog.Store,
	c services.IConnector,
	runID string,
	logger clog.ICustomLog,
) *Result {
	started := time.Now()

	result := &Result{
		Source: c.Name(),
		Stats:  make(map[catalog.Kind]catalog.MergeStats),
	}

	defer func() {
		result.Duration = time.Since(started)
	}()

	if err := c.Configured(); err != nil {
		result.Err = err

		if services.IsNotConfigured(err) {
			result.Status = StatusSkipped
			logger.Info("Skipping connector", zap.String("reason", err.Error()))

			return result
		}

		result.Status = StatusFailed
		logger.Error("Connector cannot run", zap.Error(err))

		return result
	}

	var txn *newrelic.Transaction

	if r.opts.NewRelic != nil {
		txn = r.opts.NewRelic.StartTransaction("ingest." + c.Name())
		txn.AddAttribute("run_id", runID)
		defer txn.End()

		ctx = newrelic.NewContext(ctx, txn)
	}

	ctx = util.WithLogger(ctx, logger)

	batch, err := c.Fetch(ctx)
	if err != nil {
		if services.IsNotConfigured(err) {
			result.Status = StatusSkipped
			result.Err = err
			logger.Info("Skipping connector", zap.String("reason", err.Error()))

			return result
		}

		result.Status = StatusFailed
		result.Err = util.Error(txn, logger, "connector fetch failed", err)

		return result
	}

	result.Dropped = batch.Dropped

	logger.Debug("Fetched batch", zap.Int("records", batch.Len()), zap.Int("dropped", batch.Dropped))

	for _, kind := range catalog.Kinds {
		records, err := batch.Records(kind)
		if err != nil {
			result.Status = StatusFailed
			result.Err = util.Error(txn, logger, "unable to build batch records", err)

			return result
		}

		if len(records) == 0 {
			continue
		}

		_, stats, err := catalog.Apply(ctx, store, kind, records)
		if err != nil {
			result.Status = StatusFailed
			result.Err = util.Error(txn, logger, "unable to apply "+string(kind), err)

			return result
		}

		result.Stats[kind] = stats

		logger.Debug("Applied batch",
			zap.String("kind", string(kind)),
			zap.Int("inserted", stats.Inserted),
			zap.Int("updated", stats.Updated),
			zap.Int("unchanged", stats.Unchanged),
			zap.Int("skipped", stats.Skipped))
	}

	result.Status = StatusOK

	return result
}
