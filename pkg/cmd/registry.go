// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"log/slog"

	"github.com/pulsecrm/pulse/pkg/actions/emailalert"
	"github.com/pulsecrm/pulse/pkg/actions/fieldupdate"
	"github.com/pulsecrm/pulse/pkg/actions/outbound"
	"github.com/pulsecrm/pulse/pkg/actions/taskcreation"
	"github.com/pulsecrm/pulse/pkg/registry"
)

// NewRegistry builds a registry with the native action kinds registered.
func NewRegistry(log *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(log)

	reg.RegisterAction(fieldupdate.NewActionFactory())
	reg.RegisterAction(emailalert.NewActionFactory())
	reg.RegisterAction(taskcreation.NewActionFactory())
	reg.RegisterAction(outbound.NewActionFactory())

	return reg
}
