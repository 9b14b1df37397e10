package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alt-ctrl-dev/imagewise/internal/backend/commandstructure"

	// Registers the operations in the default registry
	_ "github.com/alt-ctrl-dev/imagewise/internal/backend/commands"
)

// closeTimeout bounds how long Close waits for running operations.
const closeTimeout = 30 * time.Second

type CoreService struct {
	config     *ServiceConfig
	registry   *commandstructure.CommandRegistry
	dispatcher *Dispatcher
	defaults   map[string]map[string]any
}

// NewCoreService freezes the default registry and prepares the dispatcher.
func NewCoreService(config *ServiceConfig) (*CoreService, error) {
	return newCoreService(config, commandstructure.DefaultRegistry)
}

func newCoreService(config *ServiceConfig, registry *commandstructure.CommandRegistry) (*CoreService, error) {
	registry.Freeze()

	for _, op := range config.Operations {
		if !registry.IsRegistered(op.Name) {
			return nil, fmt.Errorf("configured defaults for unknown operation: %s", op.Name)
		}
	}

	service := &CoreService{
		config:     config,
		registry:   registry,
		dispatcher: NewDispatcher(registry, config.Workers),
		defaults:   config.OperationDefaults(),
	}
	slog.Info("core service initialized",
		"operations", registry.GetRegisteredNames(),
		"workers", service.dispatcher.Workers(),
		"request_timeout", config.RequestTimeout)
	return service, nil
}

// Run executes an operation through the dispatcher. Configured defaults for
// the operation are overridden by params. The configured request timeout, if
// any, is applied on top of ctx.
func (service *CoreService) Run(ctx context.Context, name string, imageData []byte, params map[string]any) (commandstructure.Result, error) {
	if service.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, service.config.RequestTimeout)
		defer cancel()
	}

	merged := commandstructure.MergeParams(service.defaults[name], params)
	return service.dispatcher.Submit(ctx, name, imageData, merged)
}

// Operations lists the registered operation names.
func (service *CoreService) Operations() []string {
	return service.registry.GetRegisteredNames()
}

// IsOperation reports whether name is a registered operation.
func (service *CoreService) IsOperation(name string) bool {
	return service.registry.IsRegistered(name)
}

// Config returns the configuration the service was created with.
func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

// Close stops accepting operations and waits for running ones.
func (service *CoreService) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := service.dispatcher.Close(ctx); err != nil {
		return fmt.Errorf("waiting for running operations: %w", err)
	}
	return nil
}
