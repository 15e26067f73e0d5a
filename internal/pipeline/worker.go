package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/catacomb"

	"tysmp/whitelist/internal/config"
)

// WorkerConfig defines the operation of the review Worker.
type WorkerConfig struct {
	Pipeline *Pipeline
	Clock    clock.Clock
	Interval time.Duration
	Logger   *slog.Logger
}

// Validate returns an error if config cannot drive the Worker.
func (config WorkerConfig) Validate() error {
	if config.Pipeline == nil {
		return errors.NotValidf("nil Pipeline")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Interval <= 0 {
		return errors.NotValidf("non-positive Interval")
	}
	return nil
}

// Worker is the single consumer of the application queue. It recovers
// pending posts once and then ticks the pipeline on a fixed interval.
type Worker struct {
	catacomb catacomb.Catacomb
	config   WorkerConfig
	logger   *slog.Logger
}

// NewWorker starts a Worker.
func NewWorker(config WorkerConfig) (worker.Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &Worker{
		config: config,
		logger: logger.With("component", "review-worker"),
	}
	err := catacomb.Invoke(catacomb.Plan{
		Site: &w.catacomb,
		Work: w.loop,
	})
	return w, errors.Trace(err)
}

// Kill is part of the worker.Worker interface.
func (w *Worker) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Worker) Wait() error {
	return w.catacomb.Wait()
}

func (w *Worker) loop() error {
	ctx, cancel := w.scopedContext()
	defer cancel()

	result, err := w.config.Pipeline.Recover(ctx)
	switch {
	case errors.Is(err, config.ErrNotConfigured):
		w.logger.Warn("review destination not configured; skipping recovery")
	case err != nil:
		w.logger.Error("recovering pending applications", "error", err)
	default:
		w.logger.Info("pending applications recovered",
			"reattached", result.Reattached,
			"orphaned", result.Orphaned,
			"failed", result.Failed,
		)
	}

	timer := w.config.Clock.NewTimer(w.config.Interval)
	defer timer.Stop()
	for {
		select {
		case <-w.catacomb.Dying():
			return w.catacomb.ErrDying()
		case <-timer.Chan():
			w.tick(ctx)
			timer.Reset(w.config.Interval)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	_, err := w.config.Pipeline.Tick(ctx)
	switch {
	case err == nil:
	case errors.Is(err, config.ErrNotConfigured):
		w.logger.Debug("review destination not configured; applications stay queued")
	default:
		w.logger.Error("processing application queue", "error", err)
	}
}

func (w *Worker) scopedContext() (context.Context, context.CancelFunc) {
	return context.WithCancel(w.catacomb.Context(context.Background()))
}
