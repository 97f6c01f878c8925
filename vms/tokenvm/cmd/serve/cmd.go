// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package serve

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/meivm/registry"
	"github.com/luxfi/meivm/vms/tokenvm"
	"github.com/luxfi/meivm/vms/tokenvm/config"
)

const (
	// APIPrefix is prepended to every handler path of the VM.
	APIPrefix = "/ext"

	shutdownTimeout = 5 * time.Second
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serves a token over JSON-RPC from an in-memory database",
		RunE:  serveFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func serveFunc(c *cobra.Command, args []string) error {
	cfg, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.NewLogger("tokenvm")
	vmIntf, err := tokenvm.NewFactory(config.DefaultConfig()).New(logger)
	if err != nil {
		return err
	}
	vm := vmIntf.(*tokenvm.VM)
	if err := vm.Initialize(ctx, memdb.New(), cfg.GenesisBytes, cfg.ConfigBytes, metric.NewRegistry()); err != nil {
		return err
	}
	defer func() {
		if err := vm.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shut down vm",
				log.Err(err),
			)
		}
	}()

	router, err := NewRouter(ctx, logger, vm)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("serving token api",
			log.String("address", cfg.Address),
		)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// NewRouter mounts the handlers of [vm] under [APIPrefix], aliased by the
// token symbol, and adds a health endpoint.
func NewRouter(ctx context.Context, logger log.Logger, vm *tokenvm.VM) (*mux.Router, error) {
	r := mux.NewRouter()
	registerer := registry.NewRegisterer(registry.Config{
		Router: r,
		Log:    logger,
		Prefix: APIPrefix,
		Aliases: map[string][]string{
			tokenvm.Name: {strings.ToLower(vm.Metadata().Symbol)},
		},
	})
	if err := registerer.Register(ctx, tokenvm.Name, vm); err != nil {
		return nil, err
	}

	r.HandleFunc(APIPrefix+"/health", func(w http.ResponseWriter, req *http.Request) {
		if _, err := vm.HealthCheck(req.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	return r, nil
}
