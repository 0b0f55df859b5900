// Package registry maps action config types to their executors.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[models.ConfigType]protocol.ActionExecutorFactory
	executors map[models.ConfigType]protocol.ActionExecutor
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log,
		factories: make(map[models.ConfigType]protocol.ActionExecutorFactory),
		executors: make(map[models.ConfigType]protocol.ActionExecutor),
	}
}

func (r *Registry) RegisterFactory(factory protocol.ActionExecutorFactory) {
	r.factories[factory.ConfigType()] = factory
}

// RegisterExecutor installs an executor directly, replacing any executor built for its config type.
func (r *Registry) RegisterExecutor(executor protocol.ActionExecutor) {
	r.executors[executor.ConfigType()] = executor
}

// Build creates an executor from every registered factory. Factories whose capability is
// missing are skipped; actions of their config type fail at dispatch.
func (r *Registry) Build(deps protocol.Dependencies) error {
	for configType, factory := range r.factories {
		if _, exists := r.executors[configType]; exists {
			continue
		}

		executor, err := factory.Create(deps)
		if errors.Is(err, protocol.ErrMissingCapability) {
			r.logger.Warn("executor not available", "config_type", configType, "reason", err)

			continue
		}

		if err != nil {
			return fmt.Errorf("failed to create %s executor: %w", configType, err)
		}

		r.executors[configType] = executor
	}

	return nil
}

// Executor returns the executor for configType or an UnknownConfigTypeError.
//
//nolint:ireturn // executors are looked up by config type
func (r *Registry) Executor(configType models.ConfigType) (protocol.ActionExecutor, error) {
	executor, ok := r.executors[configType]
	if !ok {
		return nil, &models.UnknownConfigTypeError{ConfigType: configType}
	}

	return executor, nil
}

// Schema returns the config schema declared by the factory of configType.
func (r *Registry) Schema(configType models.ConfigType) (map[string]any, bool) {
	factory, ok := r.factories[configType]
	if !ok {
		return nil, false
	}

	return factory.Schema(), true
}

// Factories returns the registered factories ordered by ID.
func (r *Registry) Factories() []protocol.ActionExecutorFactory {
	factories := make([]protocol.ActionExecutorFactory, 0, len(r.factories))
	for _, factory := range r.factories {
		factories = append(factories, factory)
	}

	sort.Slice(factories, func(i, j int) bool {
		return factories[i].ID() < factories[j].ID()
	})

	return factories
}
