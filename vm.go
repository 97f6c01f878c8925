// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vm defines the lifecycle contract shared by the virtual machines in
// this module.
package vm

import (
	"context"
	"net/http"
)

// VM is the surface a host drives after construction.
type VM interface {
	// SetState transitions the VM to the specified state
	SetState(context.Context, State) error

	// Shutdown cleanly stops the VM
	Shutdown(context.Context) error

	// Version returns the VM version
	Version(context.Context) (string, error)

	// HealthCheck reports whether the VM can serve requests
	HealthCheck(context.Context) (interface{}, error)

	// CreateHandlers returns the HTTP handlers of the VM, keyed by path
	// extension
	CreateHandlers(context.Context) (map[string]http.Handler, error)
}
