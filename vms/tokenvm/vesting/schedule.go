// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vesting computes the quarterly unlock schedule of the locked
// allocation and releases newly unlocked tokens into the ledger.
package vesting

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/holiman/uint256"

	safemath "github.com/luxfi/meivm/utils/math"
)

const (
	// PeriodLength is one quarter, fixed at 91.5 days. Calendar months are
	// deliberately not used.
	PeriodLength = 91*24*time.Hour + 12*time.Hour

	// CliffPeriods must fully elapse before the first tranche unlocks.
	CliffPeriods = 4

	// TranchePeriods is the number of equal quarterly tranches.
	TranchePeriods = 12
)

var (
	ErrInvalidPeriod   = errors.New("period length must be a positive number of seconds")
	ErrInvalidTranches = errors.New("tranche periods must be positive")
)

// Params shapes a Schedule. DefaultParams returns the production values.
type Params struct {
	PeriodLength   time.Duration `json:"periodLength"`
	CliffPeriods   uint64        `json:"cliffPeriods"`
	TranchePeriods uint64        `json:"tranchePeriods"`
}

func DefaultParams() Params {
	return Params{
		PeriodLength:   PeriodLength,
		CliffPeriods:   CliffPeriods,
		TranchePeriods: TranchePeriods,
	}
}

func (p Params) Verify() error {
	if p.PeriodLength < time.Second || p.PeriodLength%time.Second != 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, p.PeriodLength)
	}
	if p.TranchePeriods == 0 {
		return ErrInvalidTranches
	}
	return nil
}

// Schedule is immutable once built and safe to share.
type Schedule struct {
	epoch         int64
	periodSeconds uint64
	cliffPeriods  uint64
	tranches      uint64
	locked        *uint256.Int
	trancheAmount *uint256.Int
}

// Tranche is one row of the unlock timetable.
type Tranche struct {
	Index      uint64
	UnlockTime time.Time
	Cumulative *uint256.Int
}

func NewSchedule(epoch time.Time, lockedAllocation *uint256.Int, params Params) (*Schedule, error) {
	if err := params.Verify(); err != nil {
		return nil, err
	}
	if lockedAllocation == nil {
		lockedAllocation = new(uint256.Int)
	}
	return &Schedule{
		epoch:         epoch.Unix(),
		periodSeconds: uint64(params.PeriodLength / time.Second),
		cliffPeriods:  params.CliffPeriods,
		tranches:      params.TranchePeriods,
		locked:        lockedAllocation.Clone(),
		trancheAmount: new(uint256.Int).Div(lockedAllocation, uint256.NewInt(params.TranchePeriods)),
	}, nil
}

func (s *Schedule) Epoch() time.Time {
	return time.Unix(s.epoch, 0)
}

func (s *Schedule) LockedAllocation() *uint256.Int {
	return s.locked.Clone()
}

func (s *Schedule) TrancheAmount() *uint256.Int {
	return s.trancheAmount.Clone()
}

func (s *Schedule) Params() Params {
	return Params{
		PeriodLength:   time.Duration(s.periodSeconds) * time.Second,
		CliffPeriods:   s.cliffPeriods,
		TranchePeriods: s.tranches,
	}
}

// vestedTranches returns how many tranches have unlocked at [now].
func (s *Schedule) vestedTranches(now time.Time) uint64 {
	elapsed := now.Unix() - s.epoch
	if elapsed < 0 {
		return 0
	}
	elapsedPeriods := uint64(elapsed) / s.periodSeconds
	if elapsedPeriods < s.cliffPeriods {
		return 0
	}
	// The period in which the cliff matures is the first tranche.
	return min(elapsedPeriods-s.cliffPeriods+1, s.tranches)
}

// CumulativeUnlocked returns the total amount unlocked at [now]. It is
// monotonic in [now], never exceeds the locked allocation, and the final
// tranche carries any division remainder.
func (s *Schedule) CumulativeUnlocked(now time.Time) *uint256.Int {
	vested := s.vestedTranches(now)
	if vested >= s.tranches {
		return s.locked.Clone()
	}
	unlocked := new(uint256.Int).Mul(s.trancheAmount, uint256.NewInt(vested))
	if unlocked.Gt(s.locked) {
		return s.locked.Clone()
	}
	return unlocked
}

// FullyVestedAt returns the time the final tranche unlocks.
func (s *Schedule) FullyVestedAt() (time.Time, error) {
	return s.unlockTime(s.tranches - 1)
}

// NextUnlock returns the first unlock strictly after [now]. The second return
// is false once every tranche has unlocked.
func (s *Schedule) NextUnlock(now time.Time) (time.Time, bool, error) {
	vested := s.vestedTranches(now)
	if vested >= s.tranches {
		return time.Time{}, false, nil
	}
	t, err := s.unlockTime(vested)
	return t, err == nil, err
}

// Timetable lists every tranche in unlock order.
func (s *Schedule) Timetable() ([]Tranche, error) {
	rows := make([]Tranche, 0, s.tranches)
	for i := uint64(0); i < s.tranches; i++ {
		unlock, err := s.unlockTime(i)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Tranche{
			Index:      i + 1,
			UnlockTime: unlock,
			Cumulative: s.CumulativeUnlocked(unlock),
		})
	}
	return rows, nil
}

// unlockTime is the start of the period that unlocks the zero-indexed
// tranche [i].
func (s *Schedule) unlockTime(i uint64) (time.Time, error) {
	periods, err := safemath.Add(s.cliffPeriods, i)
	if err != nil {
		return time.Time{}, err
	}
	offset, err := safemath.Mul(periods, s.periodSeconds)
	if err != nil {
		return time.Time{}, err
	}
	if offset > uint64(math.MaxInt64-max(s.epoch, 0)) {
		return time.Time{}, safemath.ErrOverflow
	}
	return time.Unix(s.epoch+int64(offset), 0), nil
}
