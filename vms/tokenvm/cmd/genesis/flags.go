// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package genesis

import (
	"errors"
	"time"

	"github.com/spf13/pflag"

	"github.com/luxfi/ids"

	"github.com/luxfi/meivm/utils/units"
	"github.com/luxfi/meivm/vms/tokenvm/genesis"
)

const (
	OwnerKey          = "owner"
	BeneficiaryKey    = "beneficiary"
	EpochKey          = "epoch"
	NameKey           = "name"
	SymbolKey         = "symbol"
	SupplyKey         = "supply"
	LockedFractionKey = "locked-fraction"
	OutputKey         = "output"
)

var errMissingOwner = errors.New("--owner is required")

func AddFlags(flags *pflag.FlagSet) {
	flags.String(OwnerKey, "", "Address that receives the liquid supply and may release vested tokens (required)")
	flags.String(BeneficiaryKey, "", "Address that receives released tokens, defaults to the owner")
	flags.Int64(EpochKey, 0, "Vesting epoch in unix seconds, defaults to now")
	flags.String(NameKey, "MEI Token", "Token name")
	flags.String(SymbolKey, "MEI", "Token symbol")
	flags.String(SupplyKey, units.Giga().Dec(), "Total supply in base units")
	flags.Uint64(LockedFractionKey, 369_000, "Vested share of the supply, in parts per million")
	flags.String(OutputKey, "", "File to write the genesis to, defaults to stdout")
}

type Config struct {
	Genesis *genesis.Genesis
	Output  string
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	ownerStr, err := flags.GetString(OwnerKey)
	if err != nil {
		return nil, err
	}
	if ownerStr == "" {
		return nil, errMissingOwner
	}
	owner, err := ids.ShortFromString(ownerStr)
	if err != nil {
		return nil, err
	}

	beneficiary := owner
	beneficiaryStr, err := flags.GetString(BeneficiaryKey)
	if err != nil {
		return nil, err
	}
	if beneficiaryStr != "" {
		beneficiary, err = ids.ShortFromString(beneficiaryStr)
		if err != nil {
			return nil, err
		}
	}

	epochUnix, err := flags.GetInt64(EpochKey)
	if err != nil {
		return nil, err
	}
	epoch := time.Unix(epochUnix, 0)
	if epochUnix == 0 {
		epoch = time.Now()
	}

	g := genesis.Default(owner, epoch)
	g.Beneficiary = beneficiary
	if g.Name, err = flags.GetString(NameKey); err != nil {
		return nil, err
	}
	if g.Symbol, err = flags.GetString(SymbolKey); err != nil {
		return nil, err
	}
	if g.TotalSupply, err = flags.GetString(SupplyKey); err != nil {
		return nil, err
	}
	if g.LockedFraction, err = flags.GetUint64(LockedFractionKey); err != nil {
		return nil, err
	}
	if err := g.Verify(); err != nil {
		return nil, err
	}

	output, err := flags.GetString(OutputKey)
	if err != nil {
		return nil, err
	}
	return &Config{
		Genesis: g,
		Output:  output,
	}, nil
}
