// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/dukex/regflow/pkg/actions/adminemail"
	"github.com/dukex/regflow/pkg/actions/apicall"
	"github.com/dukex/regflow/pkg/actions/email"
	"github.com/dukex/regflow/pkg/actions/payment"
	"github.com/dukex/regflow/pkg/actions/portaledit"
	"github.com/dukex/regflow/pkg/registry"
)

func registerNativeActions(reg *registry.Registry) {
	reg.RegisterFactory(email.NewActionFactory())
	reg.RegisterFactory(adminemail.NewActionFactory())
	reg.RegisterFactory(apicall.NewActionFactory())
	reg.RegisterFactory(apicall.NewInternalActionFactory())
	reg.RegisterFactory(payment.NewActionFactory())
	reg.RegisterFactory(portaledit.NewActionFactory())
}

// NewRegistry returns a registry holding a factory for every action config type.
// Executors are created later by Build, once the capabilities are known.
func NewRegistry(log *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(log)

	registerNativeActions(reg)

	return reg
}
