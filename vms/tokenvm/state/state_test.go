// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"

	"github.com/luxfi/meivm/vms/tokenvm/ledger"
)

func TestBalances(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New(), 2)
	addr := ids.GenerateTestShortID()

	balance, err := s.GetBalance(addr)
	require.NoError(err)
	require.True(balance.IsZero())

	require.NoError(s.SetBalance(addr, uint256.NewInt(42)))
	balance, err = s.GetBalance(addr)
	require.NoError(err)
	require.Equal(uint64(42), balance.Uint64())

	// Mutating a returned value must not leak into the state.
	balance.SetUint64(7)
	balance, err = s.GetBalance(addr)
	require.NoError(err)
	require.Equal(uint64(42), balance.Uint64())

	require.NoError(s.SetBalance(addr, new(uint256.Int)))
	holdings, err := s.GetHoldings(ids.ShortEmpty, 10)
	require.NoError(err)
	require.Empty(holdings)
}

func TestCommitAbort(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	s := New(db, 0)
	addr := ids.GenerateTestShortID()

	require.NoError(s.SetBalance(addr, uint256.NewInt(10)))
	require.NoError(s.SetReserve(uint256.NewInt(90)))
	require.NoError(s.Commit())

	require.NoError(s.SetBalance(addr, uint256.NewInt(99)))
	require.NoError(s.SetReserve(uint256.NewInt(1)))
	require.NoError(s.Emit(ledger.Event{Kind: ledger.TransferEvent, To: addr, Amount: uint256.NewInt(89)}))
	s.Abort()

	balance, err := s.GetBalance(addr)
	require.NoError(err)
	require.Equal(uint64(10), balance.Uint64())
	reserve, err := s.GetReserve()
	require.NoError(err)
	require.Equal(uint64(90), reserve.Uint64())
	count, err := s.EventCount()
	require.NoError(err)
	require.Zero(count)

	// A fresh view over the same database sees only committed data.
	reopened := New(db, 0)
	balance, err = reopened.GetBalance(addr)
	require.NoError(err)
	require.Equal(uint64(10), balance.Uint64())
}

func TestSingletons(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New(), 0)

	initialized, err := s.IsInitialized()
	require.NoError(err)
	require.False(initialized)
	require.NoError(s.SetInitialized())
	initialized, err = s.IsInitialized()
	require.NoError(err)
	require.True(initialized)

	for _, test := range []struct {
		get func() (*uint256.Int, error)
		set func(*uint256.Int) error
	}{
		{get: s.GetTotalSupply, set: s.SetTotalSupply},
		{get: s.GetReserve, set: s.SetReserve},
		{get: s.GetReleased, set: s.SetReleased},
	} {
		v, err := test.get()
		require.NoError(err)
		require.True(v.IsZero())

		big := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
		require.NoError(test.set(big))
		v, err = test.get()
		require.NoError(err)
		require.Equal(big, v)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New(), 0)
	_, err := s.GetMetadata()
	require.ErrorIs(err, database.ErrNotFound)

	m := &Metadata{
		Name:             "MEI Token",
		Symbol:           "MEI",
		Decimals:         18,
		Owner:            ids.GenerateTestShortID(),
		Beneficiary:      ids.GenerateTestShortID(),
		Epoch:            1_640_995_200,
		LockedAllocation: uint256.NewInt(369).Bytes32(),
		PeriodSeconds:    7_905_600,
		CliffPeriods:     4,
		TranchePeriods:   12,
	}
	require.NoError(s.SetMetadata(m))

	got, err := s.GetMetadata()
	require.NoError(err)
	require.Equal(m, got)
	require.Equal(uint64(369), got.Locked().Uint64())
	require.Equal(int64(1_640_995_200), got.EpochTime().Unix())
}

func TestEvents(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New(), 0)
	a := ids.GenerateTestShortID()
	b := ids.GenerateTestShortID()

	require.NoError(s.Emit(ledger.Event{Kind: ledger.MintEvent, To: a, Amount: uint256.NewInt(100)}))
	for i := uint64(1); i <= 5; i++ {
		require.NoError(s.Emit(ledger.Event{Kind: ledger.TransferEvent, From: a, To: b, Amount: uint256.NewInt(i)}))
	}

	count, err := s.EventCount()
	require.NoError(err)
	require.Equal(uint64(6), count)

	events, err := s.GetEvents(0, 2)
	require.NoError(err)
	require.Len(events, 2)
	require.Equal(uint64(0), events[0].Seq)
	require.Equal(ledger.MintEvent, events[0].Kind)
	require.Equal(ids.ShortEmpty, events[0].From)
	require.Equal(uint64(100), events[0].Amount.Uint64())
	require.Equal(uint64(1), events[1].Seq)

	events, err = s.GetEvents(3, 100)
	require.NoError(err)
	require.Len(events, 3)
	for i, event := range events {
		require.Equal(uint64(3+i), event.Seq)
		require.Equal(uint64(3+i), event.Amount.Uint64())
		require.Equal(ledger.TransferEvent, event.Kind)
		require.Equal(a, event.From)
		require.Equal(b, event.To)
	}
}

func TestHoldings(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New(), 0)
	addrs := make([]ids.ShortID, 4)
	for i := range addrs {
		addrs[i] = ids.ShortID{byte(i + 1)}
		require.NoError(s.SetBalance(addrs[i], uint256.NewInt(uint64(i+1))))
	}

	holdings, err := s.GetHoldings(ids.ShortEmpty, 3)
	require.NoError(err)
	require.Len(holdings, 3)
	require.Equal(addrs[0], holdings[0].Address)
	require.Equal(uint64(3), holdings[2].Balance.Uint64())

	holdings, err = s.GetHoldings(addrs[2], 10)
	require.NoError(err)
	require.Len(holdings, 2)
	require.Equal(addrs[2], holdings[0].Address)
	require.Equal(addrs[3], holdings[1].Address)
}

func TestClose(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	s := New(db, 0)
	require.NoError(s.SetBalance(ids.ShortID{1}, uint256.NewInt(1)))
	require.NoError(s.Commit())
	require.NoError(s.Close())
	require.ErrorIs(s.Close(), database.ErrClosed)

	// The wrapped database stays open for the next state.
	s = New(db, 0)
	balance, err := s.GetBalance(ids.ShortID{1})
	require.NoError(err)
	require.Equal(uint64(1), balance.Uint64())
	require.NoError(s.Close())
}
