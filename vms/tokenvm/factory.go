// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tokenvm

import (
	"github.com/luxfi/log"

	"github.com/luxfi/meivm/vms/tokenvm/config"

	vmpkg "github.com/luxfi/meivm"
)

var _ vmpkg.Factory = (*Factory)(nil)

// Factory creates token VM instances.
type Factory struct {
	config.Config
}

// New creates a new token VM with the factory configuration.
func (f *Factory) New(logger log.Logger) (interface{}, error) {
	if f.Config == (config.Config{}) {
		f.Config = config.DefaultConfig()
	}
	if err := f.Config.Validate(); err != nil {
		return nil, err
	}
	return &VM{
		Config: f.Config,
		log:    logger,
	}, nil
}

// NewFactory creates a token VM factory with the given configuration.
func NewFactory(cfg config.Config) *Factory {
	return &Factory{Config: cfg}
}
