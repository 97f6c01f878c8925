// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package serve

import (
	"errors"
	"net"
	"os"
	"strconv"

	"github.com/spf13/pflag"
)

const (
	GenesisKey  = "genesis"
	ConfigKey   = "config"
	HTTPHostKey = "http-host"
	HTTPPortKey = "http-port"
)

var errMissingGenesis = errors.New("--genesis is required")

func AddFlags(flags *pflag.FlagSet) {
	flags.String(GenesisKey, "", "Genesis file of the token (required)")
	flags.String(ConfigKey, "", "JSON file with the VM configuration")
	flags.String(HTTPHostKey, "127.0.0.1", "Address the API listens on")
	flags.Uint16(HTTPPortKey, 9650, "Port the API listens on")
}

type Config struct {
	GenesisBytes []byte
	ConfigBytes  []byte
	Address      string
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

	var configBytes []byte
	configPath, err := flags.GetString(ConfigKey)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		configBytes, err = os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
	}

	host, err := flags.GetString(HTTPHostKey)
	if err != nil {
		return nil, err
	}
	port, err := flags.GetUint16(HTTPPortKey)
	if err != nil {
		return nil, err
	}

	return &Config{
		GenesisBytes: genesisBytes,
		ConfigBytes:  configBytes,
		Address:      net.JoinHostPort(host, strconv.Itoa(int(port))),
	}, nil
}
