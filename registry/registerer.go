// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/gorilla/mux"

	"github.com/luxfi/log"

	vmpkg "github.com/luxfi/meivm"
)

var (
	_ Registerer = (*registerer)(nil)

	errDuplicateName = errors.New("duplicate vm name")
)

// Registerer mounts the API handlers of VMs on a router.
type Registerer interface {
	// Register mounts the handlers of [vm] under the endpoint [name] and under
	// every alias of [name].
	Register(ctx context.Context, name string, vm vmpkg.VM) error
}

type Config struct {
	Router *mux.Router
	Log    log.Logger
	// Prefix is prepended to every endpoint
	Prefix string
	// Aliases lists additional endpoints per VM name
	Aliases map[string][]string
}

type registerer struct {
	config     Config
	registered map[string]struct{}
}

func NewRegisterer(config Config) Registerer {
	return &registerer{
		config:     config,
		registered: make(map[string]struct{}),
	}
}

func (r *registerer) Register(ctx context.Context, name string, vm vmpkg.VM) error {
	if _, ok := r.registered[name]; ok {
		return fmt.Errorf("%w: %s", errDuplicateName, name)
	}

	handlers, err := vm.CreateHandlers(ctx)
	if err != nil {
		r.config.Log.Error("failed to create API endpoints",
			log.String("vm", name),
			log.Err(err),
		)
		if err := vm.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down VM errored with: %w", err)
		}
		return err
	}

	defaultEndpoint := path.Join(r.config.Prefix, name)
	endpoints := []string{defaultEndpoint}
	for _, alias := range r.config.Aliases[name] {
		urlAlias := path.Join(r.config.Prefix, alias)
		if urlAlias != defaultEndpoint {
			endpoints = append(endpoints, urlAlias)
		}
	}

	for _, endpoint := range endpoints {
		r.addRoutes(handlers, endpoint)
	}
	r.registered[name] = struct{}{}
	return nil
}

func (r *registerer) addRoutes(handlers map[string]http.Handler, endpoint string) {
	for extension, handler := range handlers {
		r.config.Log.Debug("adding API endpoint",
			log.String("endpoint", endpoint),
			log.String("extension", extension),
		)
		r.config.Router.Handle(endpoint+extension, handler).Methods(http.MethodPost)
	}
}
