// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package schedule

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/luxfi/meivm/vms/tokenvm/genesis"
)

const (
	GenesisKey = "genesis"
	AtKey      = "at"
)

var errMissingGenesis = errors.New("--genesis is required")

func AddFlags(flags *pflag.FlagSet) {
	flags.String(GenesisKey, "", "Genesis file describing the token (required)")
	flags.Int64(AtKey, 0, "Also report the releasable amount at this unix time")
}

type Config struct {
	Genesis *genesis.Genesis
	// At is the zero time when no query time was given
	At time.Time
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	genesisPath, err := flags.GetString(GenesisKey)
	if err != nil {
		return nil, err
	}
	if genesisPath == "" {
		return nil, errMissingGenesis
	}
	genesisBytes, err := os.ReadFile(genesisPath)
	if err != nil {
		return nil, err
	}
	g, err := genesis.Parse(genesisBytes)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Genesis: g,
	}
	at, err := flags.GetInt64(AtKey)
	if err != nil {
		return nil, err
	}
	if at != 0 {
		config.At = time.Unix(at, 0)
	}
	return config, nil
}
