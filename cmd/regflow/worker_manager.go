package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/dukex/regflow/pkg/eventbus"
	"github.com/dukex/regflow/pkg/workflow"
)

type WorkerManager struct {
	id       string
	logger   *slog.Logger
	engine   *workflow.Engine
	eventBus eventbus.EventSubscriber
}

func NewWorkerManager(id string, engine *workflow.Engine, eventBus eventbus.EventSubscriber, logger *slog.Logger) *WorkerManager {
	return &WorkerManager{
		id:       id,
		logger:   logger,
		engine:   engine,
		eventBus: eventBus,
	}
}

// Start subscribes the engine and blocks until ctx is cancelled or the process is
// interrupted.
func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	if err := w.engine.Subscribe(w.eventBus); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.eventBus.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	<-ctx.Done()

	w.logger.Info("Shutting down worker...")

	return nil
}
