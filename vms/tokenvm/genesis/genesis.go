// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package genesis describes the construction parameters of a token.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"

	"github.com/luxfi/meivm/utils/units"
	"github.com/luxfi/meivm/vms/tokenvm/vesting"

	safemath "github.com/luxfi/meivm/utils/math"
)

// PercentDenominator is the denominator of LockedFraction.
const PercentDenominator = 1_000_000

var (
	ErrMissingName      = errors.New("missing token name")
	ErrMissingSymbol    = errors.New("missing token symbol")
	ErrInvalidSupply    = errors.New("invalid total supply")
	ErrInvalidFraction  = errors.New("locked fraction exceeds denominator")
	ErrMissingOwner     = errors.New("missing owner")
	ErrInvalidDecimals  = errors.New("decimals out of range")
	ErrInvalidVesting   = errors.New("invalid vesting parameters")
	errUnparsableSupply = errors.New("total supply is not a decimal integer")
)

// VestingParams overrides the default quarterly schedule.
type VestingParams struct {
	PeriodSeconds  uint64 `json:"periodSeconds"`
	CliffPeriods   uint64 `json:"cliffPeriods"`
	TranchePeriods uint64 `json:"tranchePeriods"`
}

type Genesis struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	// TotalSupply is a decimal string in base units.
	TotalSupply string `json:"totalSupply"`
	// LockedFraction is the vested share of TotalSupply in parts per
	// PercentDenominator.
	LockedFraction uint64 `json:"lockedFraction"`
	// Epoch is the vesting anchor, in unix seconds.
	Epoch       int64       `json:"epoch"`
	Owner       ids.ShortID `json:"owner"`
	Beneficiary ids.ShortID `json:"beneficiary"`

	Vesting *VestingParams `json:"vesting,omitempty"`
}

// Default returns the production token: one billion tokens, 36.9% of which
// vest over twelve quarters after a four quarter cliff.
func Default(owner ids.ShortID, epoch time.Time) *Genesis {
	return &Genesis{
		Name:           "MEI Token",
		Symbol:         "MEI",
		Decimals:       units.Decimals,
		TotalSupply:    units.Giga().Dec(),
		LockedFraction: 369_000,
		Epoch:          epoch.Unix(),
		Owner:          owner,
		Beneficiary:    owner,
	}
}

func Parse(bytes []byte) (*Genesis, error) {
	g := &Genesis{}
	if err := json.Unmarshal(bytes, g); err != nil {
		return nil, err
	}
	return g, g.Verify()
}

func (g *Genesis) Bytes() ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

func (g *Genesis) Verify() error {
	switch {
	case g.Name == "":
		return ErrMissingName
	case g.Symbol == "":
		return ErrMissingSymbol
	case g.Decimals > 77:
		return fmt.Errorf("%w: %d", ErrInvalidDecimals, g.Decimals)
	case g.LockedFraction > PercentDenominator:
		return fmt.Errorf("%w: %d > %d", ErrInvalidFraction, g.LockedFraction, PercentDenominator)
	case g.Owner == ids.ShortEmpty:
		return ErrMissingOwner
	}
	supply, err := g.Supply()
	if err != nil {
		return err
	}
	if supply.IsZero() {
		return fmt.Errorf("%w: must be positive", ErrInvalidSupply)
	}
	if err := g.ScheduleParams().Verify(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidVesting, err)
	}
	return nil
}

func (g *Genesis) Supply() (*uint256.Int, error) {
	supply, err := uint256.FromDecimal(g.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %q", ErrInvalidSupply, errUnparsableSupply, g.TotalSupply)
	}
	return supply, nil
}

// Split divides the total supply into the liquid portion minted to the owner
// and the locked allocation. liquid + locked always equals the supply.
func (g *Genesis) Split() (liquid *uint256.Int, locked *uint256.Int, err error) {
	supply, err := g.Supply()
	if err != nil {
		return nil, nil, err
	}
	locked, err = safemath.MulDiv256(
		supply,
		uint256.NewInt(g.LockedFraction),
		uint256.NewInt(PercentDenominator),
	)
	if err != nil {
		return nil, nil, err
	}
	liquid, err = safemath.Sub256(supply, locked)
	if err != nil {
		return nil, nil, err
	}
	return liquid, locked, nil
}

// Recipient returns the beneficiary, falling back to the owner.
func (g *Genesis) Recipient() ids.ShortID {
	if g.Beneficiary == ids.ShortEmpty {
		return g.Owner
	}
	return g.Beneficiary
}

func (g *Genesis) ScheduleParams() vesting.Params {
	if g.Vesting == nil {
		return vesting.DefaultParams()
	}
	return vesting.Params{
		PeriodLength:   time.Duration(g.Vesting.PeriodSeconds) * time.Second,
		CliffPeriods:   g.Vesting.CliffPeriods,
		TranchePeriods: g.Vesting.TranchePeriods,
	}
}

func (g *Genesis) EpochTime() time.Time {
	return time.Unix(g.Epoch, 0)
}

// Schedule builds the vesting schedule described by the genesis.
func (g *Genesis) Schedule() (*vesting.Schedule, error) {
	_, locked, err := g.Split()
	if err != nil {
		return nil, err
	}
	return vesting.NewSchedule(g.EpochTime(), locked, g.ScheduleParams())
}
