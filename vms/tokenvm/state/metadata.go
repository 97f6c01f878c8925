// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
)

// Metadata is the immutable construction record of a token instance.
type Metadata struct {
	Name             string      `serialize:"true"`
	Symbol           string      `serialize:"true"`
	Decimals         uint8       `serialize:"true"`
	Owner            ids.ShortID `serialize:"true"`
	Beneficiary      ids.ShortID `serialize:"true"`
	Epoch            int64       `serialize:"true"`
	LockedAllocation [32]byte    `serialize:"true"`
	PeriodSeconds    uint64      `serialize:"true"`
	CliffPeriods     uint64      `serialize:"true"`
	TranchePeriods   uint64      `serialize:"true"`
}

func (m *Metadata) EpochTime() time.Time {
	return time.Unix(m.Epoch, 0)
}

func (m *Metadata) Locked() *uint256.Int {
	return new(uint256.Int).SetBytes32(m.LockedAllocation[:])
}

func (m *Metadata) PeriodLength() time.Duration {
	return time.Duration(m.PeriodSeconds) * time.Second
}

type eventRecord struct {
	Kind   uint8       `serialize:"true"`
	From   ids.ShortID `serialize:"true"`
	To     ids.ShortID `serialize:"true"`
	Amount [32]byte    `serialize:"true"`
}
