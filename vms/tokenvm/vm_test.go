// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tokenvm

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/meivm/utils/units"
	"github.com/luxfi/meivm/vms/tokenvm/config"
	"github.com/luxfi/meivm/vms/tokenvm/genesis"
	"github.com/luxfi/meivm/vms/tokenvm/ledger"
	"github.com/luxfi/meivm/vms/tokenvm/vesting"

	vmpkg "github.com/luxfi/meivm"
)

var testEpoch = time.Unix(1_640_995_200, 0)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func defaultGenesisBytes(t *testing.T, owner ids.ShortID) []byte {
	genesisBytes, err := genesis.Default(owner, testEpoch).Bytes()
	require.NoError(t, err)
	return genesisBytes
}

func newTestVM(t *testing.T, db database.Database, genesisBytes []byte) *VM {
	require := require.New(t)

	factory := NewFactory(config.DefaultConfig())
	vmIntf, err := factory.New(log.NoLog{})
	require.NoError(err)
	vm := vmIntf.(*VM)

	require.NoError(vm.Initialize(
		context.Background(),
		db,
		genesisBytes,
		nil,
		metric.NewRegistry(),
	))
	t.Cleanup(func() {
		require.NoError(vm.Shutdown(context.Background()))
	})
	return vm
}

func periodsAfterEpoch(periods uint64) time.Time {
	return testEpoch.Add(time.Duration(periods) * vesting.PeriodLength)
}

func requireBalance(t *testing.T, vm *VM, addr ids.ShortID, expected *uint256.Int) {
	balance, err := vm.BalanceOf(addr)
	require.NoError(t, err)
	require.Equal(t, expected.Dec(), balance.Dec())
}

func requireConserved(t *testing.T, vm *VM) {
	require := require.New(t)

	supply, err := vm.Supply()
	require.NoError(err)
	holdings, err := vm.Holdings(ids.ShortEmpty, vm.MaxQueryLimit)
	require.NoError(err)

	sum := supply.Reserve.Clone()
	for _, holding := range holdings {
		sum.Add(sum, holding.Balance)
	}
	require.Equal(supply.Total.Dec(), sum.Dec())
	require.Equal(supply.Total.Dec(), units.Giga().Dec())
}

func TestInitializeGenesis(t *testing.T) {
	require := require.New(t)

	owner := ids.GenerateTestShortID()
	vm := newTestVM(t, memdb.New(), defaultGenesisBytes(t, owner))

	requireBalance(t, vm, owner, units.Tokens(631_000_000))
	supply, err := vm.Supply()
	require.NoError(err)
	require.Equal(units.Giga().Dec(), supply.Total.Dec())
	require.Equal(units.Tokens(369_000_000).Dec(), supply.Reserve.Dec())
	require.Equal(units.Tokens(631_000_000).Dec(), supply.Circulating.Dec())
	require.True(supply.Released.IsZero())

	metadata := vm.Metadata()
	require.Equal("MEI", metadata.Symbol)
	require.Equal(owner, metadata.Owner)
	require.Equal(owner, metadata.Beneficiary)

	schedule := vm.Schedule()
	require.Equal(testEpoch, schedule.Epoch())
	require.Equal(units.Tokens(30_750_000).Dec(), schedule.TrancheAmount().Dec())

	events, err := vm.Events(0, 10)
	require.NoError(err)
	require.Len(events, 1)
	require.Equal(ledger.MintEvent, events[0].Kind)
	require.Equal(owner, events[0].To)
	require.Equal(units.Tokens(631_000_000).Dec(), events[0].Amount.Dec())

	health, err := vm.HealthCheck(context.Background())
	require.NoError(err)
	require.Equal(vmpkg.NormalOp.String(), health.(map[string]interface{})["state"])

	requireConserved(t, vm)
}

func TestInitializeInvalidGenesis(t *testing.T) {
	require := require.New(t)

	vm := &VM{}
	err := vm.Initialize(
		context.Background(),
		memdb.New(),
		[]byte(`{"name":"MEI"}`),
		nil,
		metric.NewRegistry(),
	)
	require.ErrorIs(err, genesis.ErrMissingSymbol)
}

func TestInitializeInvalidConfig(t *testing.T) {
	vm := &VM{}
	err := vm.Initialize(
		context.Background(),
		memdb.New(),
		defaultGenesisBytes(t, ids.GenerateTestShortID()),
		[]byte(`{"balanceCacheSize":-1}`),
		metric.NewRegistry(),
	)
	require.ErrorIs(t, err, config.ErrInvalidCacheSize)
}

func TestTransfer(t *testing.T) {
	require := require.New(t)

	owner := ids.GenerateTestShortID()
	alice := ids.GenerateTestShortID()
	bob := ids.GenerateTestShortID()
	vm := newTestVM(t, memdb.New(), defaultGenesisBytes(t, owner))

	require.NoError(vm.Transfer(owner, alice, units.Tokens(100)))
	require.NoError(vm.Transfer(alice, bob, units.Tokens(40)))

	requireBalance(t, vm, owner, units.Tokens(630_999_900))
	requireBalance(t, vm, alice, units.Tokens(60))
	requireBalance(t, vm, bob, units.Tokens(40))

	events, err := vm.Events(1, 10)
	require.NoError(err)
	require.Len(events, 2)
	require.Equal(uint64(2), events[1].Seq)
	require.Equal(alice, events[1].From)
	require.Equal(bob, events[1].To)
	require.Equal(units.Tokens(40).Dec(), events[1].Amount.Dec())

	requireConserved(t, vm)
}

func TestFailedTransferHasNoEffect(t *testing.T) {
	require := require.New(t)

	owner := ids.GenerateTestShortID()
	alice := ids.GenerateTestShortID()
	vm := newTestVM(t, memdb.New(), defaultGenesisBytes(t, owner))

	err := vm.Transfer(alice, owner, uint256.NewInt(1))
	require.ErrorIs(err, ledger.ErrInsufficientBalance)

	err = vm.Transfer(owner, alice, new(uint256.Int).Add(units.Giga(), uint256.NewInt(1)))
	require.ErrorIs(err, ledger.ErrInsufficientBalance)

	err = vm.Transfer(owner, ids.ShortEmpty, uint256.NewInt(1))
	require.ErrorIs(err, ledger.ErrZeroAddress)

	requireBalance(t, vm, owner, units.Tokens(631_000_000))
	requireBalance(t, vm, alice, new(uint256.Int))

	events, err := vm.Events(0, 10)
	require.NoError(err)
	require.Len(events, 1)
	requireConserved(t, vm)
}

func TestReleaseSchedule(t *testing.T) {
	require := require.New(t)

	owner := ids.GenerateTestShortID()
	vm := newTestVM(t, memdb.New(), defaultGenesisBytes(t, owner))

	// Before the cliff nothing is released.
	minted, err := vm.Release(owner, periodsAfterEpoch(4).Add(-time.Second))
	require.NoError(err)
	require.True(minted.IsZero())
	requireBalance(t, vm, owner, units.Tokens(631_000_000))

	// The first tranche unlocks at the cliff.
	minted, err = vm.Release(owner, periodsAfterEpoch(4))
	require.NoError(err)
	require.Equal(units.Tokens(30_750_000).Dec(), minted.Dec())
	requireBalance(t, vm, owner, units.Tokens(661_750_000))

	// A second release in the same period mints nothing.
	minted, err = vm.Release(owner, periodsAfterEpoch(5).Add(-time.Second))
	require.NoError(err)
	require.True(minted.IsZero())

	// Skipping periods releases every missed tranche at once.
	minted, err = vm.Release(owner, periodsAfterEpoch(7))
	require.NoError(err)
	require.Equal(units.Tokens(3*30_750_000).Dec(), minted.Dec())

	releasable, err := vm.GetReleasableAmount(periodsAfterEpoch(7))
	require.NoError(err)
	require.Equal(units.Tokens(4*30_750_000).Dec(), releasable.Dec())

	// After the last tranche the whole supply circulates.
	minted, err = vm.Release(owner, periodsAfterEpoch(100))
	require.NoError(err)
	require.Equal(units.Tokens(8*30_750_000).Dec(), minted.Dec())
	requireBalance(t, vm, owner, units.Giga())

	supply, err := vm.Supply()
	require.NoError(err)
	require.True(supply.Reserve.IsZero())
	require.Equal(units.Tokens(369_000_000).Dec(), supply.Released.Dec())

	pending, err := vm.Pending(periodsAfterEpoch(200))
	require.NoError(err)
	require.True(pending.IsZero())

	requireConserved(t, vm)
}

func TestReleaseToBeneficiary(t *testing.T) {
	require := require.New(t)

	owner := ids.GenerateTestShortID()
	beneficiary := ids.GenerateTestShortID()
	g := genesis.Default(owner, testEpoch)
	g.Beneficiary = beneficiary
	genesisBytes, err := g.Bytes()
	require.NoError(err)

	vm := newTestVM(t, memdb.New(), genesisBytes)

	minted, err := vm.Release(owner, periodsAfterEpoch(4))
	require.NoError(err)
	require.Equal(units.Tokens(30_750_000).Dec(), minted.Dec())
	requireBalance(t, vm, beneficiary, units.Tokens(30_750_000))
	requireBalance(t, vm, owner, units.Tokens(631_000_000))

	// Only the owner may trigger a release, even the beneficiary may not.
	_, err = vm.Release(beneficiary, periodsAfterEpoch(5))
	require.ErrorIs(err, vesting.ErrUnauthorized)
	requireBalance(t, vm, beneficiary, units.Tokens(30_750_000))
}

func TestReleaseNowUsesClock(t *testing.T) {
	require := require.New(t)

	owner := ids.GenerateTestShortID()
	vm := newTestVM(t, memdb.New(), defaultGenesisBytes(t, owner))

	vm.Clock().Set(periodsAfterEpoch(6))
	minted, now, err := vm.ReleaseNow(owner)
	require.NoError(err)
	require.Equal(periodsAfterEpoch(6), now)
	require.Equal(units.Tokens(3*30_750_000).Dec(), minted.Dec())
}

func TestRestart(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	owner := ids.GenerateTestShortID()
	alice := ids.GenerateTestShortID()

	vm := newTestVM(t, db, defaultGenesisBytes(t, owner))
	require.NoError(vm.Transfer(owner, alice, units.Tokens(5)))
	_, err := vm.Release(owner, periodsAfterEpoch(4))
	require.NoError(err)
	require.NoError(vm.Shutdown(context.Background()))

	// The second genesis is ignored in favor of the persisted token.
	restarted := newTestVM(t, db, defaultGenesisBytes(t, alice))
	require.Equal(owner, restarted.Metadata().Owner)
	requireBalance(t, restarted, alice, units.Tokens(5))
	requireBalance(t, restarted, owner, units.Tokens(661_749_995))

	minted, err := restarted.Release(owner, periodsAfterEpoch(4))
	require.NoError(err)
	require.True(minted.IsZero())

	events, err := restarted.Events(0, 10)
	require.NoError(err)
	require.Len(events, 3)
	require.Equal(ledger.MintEvent, events[2].Kind)

	requireConserved(t, restarted)
}

func TestShutdown(t *testing.T) {
	require := require.New(t)

	owner := ids.GenerateTestShortID()
	vm := newTestVM(t, memdb.New(), defaultGenesisBytes(t, owner))
	require.NoError(vm.Shutdown(context.Background()))

	err := vm.Transfer(owner, ids.GenerateTestShortID(), uint256.NewInt(1))
	require.ErrorIs(err, errShutdown)
	_, err = vm.HealthCheck(context.Background())
	require.ErrorIs(err, errShutdown)
}

func TestInitializeTwice(t *testing.T) {
	require := require.New(t)

	owner := ids.GenerateTestShortID()
	registry := metric.NewRegistry()
	vm := newTestVM(t, memdb.New(), defaultGenesisBytes(t, owner))

	err := vm.Initialize(
		context.Background(),
		memdb.New(),
		defaultGenesisBytes(t, ids.GenerateTestShortID()),
		nil,
		registry,
	)
	require.ErrorIs(err, errAlreadyInitialized)

	// The running token is untouched.
	requireBalance(t, vm, owner, units.Tokens(631_000_000))
	require.Equal(owner, vm.Metadata().Owner)
}

func TestUninitialized(t *testing.T) {
	vm := &VM{}
	_, err := vm.BalanceOf(ids.GenerateTestShortID())
	require.ErrorIs(t, err, errNotInitialized)
}

func TestSetState(t *testing.T) {
	require := require.New(t)

	vm := newTestVM(t, memdb.New(), defaultGenesisBytes(t, ids.GenerateTestShortID()))
	require.NoError(vm.SetState(context.Background(), vmpkg.Bootstrapping))

	health, err := vm.HealthCheck(context.Background())
	require.NoError(err)
	require.Equal(vmpkg.Bootstrapping.String(), health.(map[string]interface{})["state"])
}

func TestVersion(t *testing.T) {
	vm := &VM{}
	version, err := vm.Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, Version.String(), version)
}
