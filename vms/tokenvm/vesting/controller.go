// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vesting

import (
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"

	"github.com/luxfi/meivm/vms/tokenvm/ledger"
)

//go:generate go run go.uber.org/mock/mockgen -package=vestingmock -destination=vestingmock/minter.go . Minter

var (
	_ Minter = (*ledger.Ledger)(nil)

	ErrUnauthorized = errors.New("caller is not the owner")
)

// Minter moves tokens out of the ledger reserve.
type Minter interface {
	Mint(key *ledger.MintKey, to ids.ShortID, amount *uint256.Int) error
}

// ReleasedStore persists the cumulative amount already released.
type ReleasedStore interface {
	GetReleased() (*uint256.Int, error)
	SetReleased(*uint256.Int) error
}

// Controller releases unlocked tranches to the beneficiary. Only the owner
// may trigger a release; repeated releases are harmless.
type Controller struct {
	schedule    *Schedule
	minter      Minter
	key         *ledger.MintKey
	owner       ids.ShortID
	beneficiary ids.ShortID
	store       ReleasedStore
}

func NewController(
	schedule *Schedule,
	minter Minter,
	key *ledger.MintKey,
	owner ids.ShortID,
	beneficiary ids.ShortID,
	store ReleasedStore,
) *Controller {
	return &Controller{
		schedule:    schedule,
		minter:      minter,
		key:         key,
		owner:       owner,
		beneficiary: beneficiary,
		store:       store,
	}
}

func (c *Controller) Owner() ids.ShortID {
	return c.owner
}

func (c *Controller) Beneficiary() ids.ShortID {
	return c.beneficiary
}

func (c *Controller) Schedule() *Schedule {
	return c.schedule
}

// Release mints whatever has unlocked since the last release and returns the
// amount minted, which is zero when nothing new has unlocked.
func (c *Controller) Release(caller ids.ShortID, now time.Time) (*uint256.Int, error) {
	if caller != c.owner {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}

	unlocked := c.schedule.CumulativeUnlocked(now)
	released, err := c.store.GetReleased()
	if err != nil {
		return nil, fmt.Errorf("failed to read released amount: %w", err)
	}
	if !unlocked.Gt(released) {
		return new(uint256.Int), nil
	}

	delta := new(uint256.Int).Sub(unlocked, released)
	if err := c.minter.Mint(c.key, c.beneficiary, delta); err != nil {
		return nil, fmt.Errorf("failed to mint %s: %w", delta.Dec(), err)
	}
	if err := c.store.SetReleased(unlocked); err != nil {
		return nil, fmt.Errorf("failed to write released amount: %w", err)
	}
	return delta, nil
}

// ReleasableAmount is the cumulative amount unlocked at [now], regardless of
// what has been released so far.
func (c *Controller) ReleasableAmount(now time.Time) *uint256.Int {
	return c.schedule.CumulativeUnlocked(now)
}

// Pending is the amount a release at [now] would mint.
func (c *Controller) Pending(now time.Time) (*uint256.Int, error) {
	released, err := c.store.GetReleased()
	if err != nil {
		return nil, err
	}
	unlocked := c.schedule.CumulativeUnlocked(now)
	if !unlocked.Gt(released) {
		return new(uint256.Int), nil
	}
	return unlocked.Sub(unlocked, released), nil
}

func (c *Controller) Released() (*uint256.Int, error) {
	return c.store.GetReleased()
}

// Done reports whether the whole locked allocation has been released.
func (c *Controller) Done() (bool, error) {
	released, err := c.store.GetReleased()
	if err != nil {
		return false, err
	}
	return !released.Lt(c.schedule.locked), nil
}
