// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tokenvm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/holiman/uint256"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/utils/json"
	"github.com/luxfi/version"

	"github.com/luxfi/meivm/utils/timer/mockable"
	"github.com/luxfi/meivm/vms/tokenvm/api"
	"github.com/luxfi/meivm/vms/tokenvm/config"
	"github.com/luxfi/meivm/vms/tokenvm/genesis"
	"github.com/luxfi/meivm/vms/tokenvm/ledger"
	"github.com/luxfi/meivm/vms/tokenvm/metrics"
	"github.com/luxfi/meivm/vms/tokenvm/state"
	"github.com/luxfi/meivm/vms/tokenvm/vesting"

	vmpkg "github.com/luxfi/meivm"
	utilmetric "github.com/luxfi/meivm/utils/metric"
)

const (
	// Name is the service name the JSON-RPC API is registered under.
	Name = "token"

	// Endpoint is the path extension of the JSON-RPC handler.
	Endpoint = "/rpc"
)

var (
	_ vmpkg.VM = (*VM)(nil)
	_ api.VM   = (*VM)(nil)

	Version = &version.Semantic{
		Major: 1,
		Minor: 0,
		Patch: 0,
	}

	errAlreadyInitialized = errors.New("vm already initialized")
	errNotInitialized     = errors.New("vm not initialized")
	errShutdown           = errors.New("vm is shut down")
	errAPIDisabled        = errors.New("api is disabled")
)

// VM hosts a single token: its ledger, its vesting schedule and the release
// controller that moves vested tokens out of the reserve. Every mutation runs
// under the VM lock and is committed to the database atomically or not at
// all.
type VM struct {
	config.Config

	log   log.Logger
	clock mockable.Clock

	lock     sync.RWMutex
	status   vmpkg.State
	state    state.State
	metrics  metrics.Metrics
	registry metric.Registry

	metadata   *state.Metadata
	ledger     *ledger.Ledger
	controller *vesting.Controller
}

// Initialize opens the token held in [db]. If [db] is empty, [genesisBytes]
// is applied first. [configBytes], when non-empty, replaces the configuration
// the VM was created with.
func (vm *VM) Initialize(
	_ context.Context,
	db database.Database,
	genesisBytes []byte,
	configBytes []byte,
	registry metric.Registry,
) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.ledger != nil {
		return errAlreadyInitialized
	}
	if vm.log == nil {
		vm.log = log.NoLog{}
	}
	if len(configBytes) > 0 {
		cfg, err := config.ParseConfig(configBytes)
		if err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		vm.Config = cfg
	} else if vm.Config == (config.Config{}) {
		vm.Config = config.DefaultConfig()
	}
	if err := vm.Config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	vm.log.Info("initializing token vm",
		log.Stringer("version", Version),
	)

	vm.status = vmpkg.Bootstrapping
	vm.registry = registry
	vm.state = state.New(db, vm.BalanceCacheSize)

	var err error
	vm.metrics, err = metrics.New(registry)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	initialized, err := vm.state.IsInitialized()
	if err != nil {
		return err
	}
	if !initialized {
		if err := vm.applyGenesis(genesisBytes); err != nil {
			vm.state.Abort()
			return fmt.Errorf("failed to apply genesis: %w", err)
		}
	} else if len(genesisBytes) > 0 {
		vm.log.Debug("ignoring genesis of an initialized database")
	}

	if err := vm.load(); err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}

	if err := vm.observe(); err != nil {
		return err
	}
	vm.status = vmpkg.NormalOp

	vm.log.Info("initialized token vm",
		log.String("symbol", vm.metadata.Symbol),
		log.Stringer("owner", vm.metadata.Owner),
		log.Stringer("beneficiary", vm.metadata.Beneficiary),
	)
	return nil
}

func (vm *VM) applyGenesis(genesisBytes []byte) error {
	g, err := genesis.Parse(genesisBytes)
	if err != nil {
		return err
	}
	supply, err := g.Supply()
	if err != nil {
		return err
	}
	liquid, locked, err := g.Split()
	if err != nil {
		return err
	}
	params := g.ScheduleParams()

	l := ledger.New(vm.state, vm.state)
	if err := l.Genesis(supply, g.Owner, liquid); err != nil {
		return err
	}

	metadata := &state.Metadata{
		Name:             g.Name,
		Symbol:           g.Symbol,
		Decimals:         g.Decimals,
		Owner:            g.Owner,
		Beneficiary:      g.Recipient(),
		Epoch:            g.Epoch,
		LockedAllocation: locked.Bytes32(),
		PeriodSeconds:    uint64(params.PeriodLength / time.Second),
		CliffPeriods:     params.CliffPeriods,
		TranchePeriods:   params.TranchePeriods,
	}
	if err := vm.state.SetMetadata(metadata); err != nil {
		return err
	}
	if err := vm.state.SetReleased(new(uint256.Int)); err != nil {
		return err
	}
	if err := vm.state.SetInitialized(); err != nil {
		return err
	}
	if err := vm.state.Commit(); err != nil {
		return err
	}

	vm.log.Info("applied genesis",
		log.String("totalSupply", supply.Dec()),
		log.String("liquid", liquid.Dec()),
		log.String("locked", locked.Dec()),
	)
	return nil
}

func (vm *VM) load() error {
	metadata, err := vm.state.GetMetadata()
	if err != nil {
		return err
	}
	schedule, err := vesting.NewSchedule(
		metadata.EpochTime(),
		metadata.Locked(),
		vesting.Params{
			PeriodLength:   metadata.PeriodLength(),
			CliffPeriods:   metadata.CliffPeriods,
			TranchePeriods: metadata.TranchePeriods,
		},
	)
	if err != nil {
		return err
	}

	l := ledger.New(vm.state, vm.state)
	key, err := l.GrantMint()
	if err != nil {
		return err
	}

	vm.metadata = metadata
	vm.ledger = l
	vm.controller = vesting.NewController(
		schedule,
		l,
		key,
		metadata.Owner,
		metadata.Beneficiary,
		vm.state,
	)
	return nil
}

// observe publishes the persisted vesting state to the metrics.
func (vm *VM) observe() error {
	reserve, err := vm.ledger.Reserve()
	if err != nil {
		return err
	}
	released, err := vm.controller.Released()
	if err != nil {
		return err
	}
	vm.metrics.SetVestingState(reserve, released)
	return nil
}

func (vm *VM) SetState(_ context.Context, newState vmpkg.State) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	vm.log.Debug("changing state",
		log.Stringer("from", vm.status),
		log.Stringer("to", newState),
	)
	vm.status = newState
	return nil
}

func (vm *VM) Shutdown(context.Context) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.state == nil || vm.status == vmpkg.Stopped {
		return nil
	}
	vm.status = vmpkg.Stopped
	return vm.state.Close()
}

func (*VM) Version(context.Context) (string, error) {
	return Version.String(), nil
}

func (vm *VM) HealthCheck(context.Context) (interface{}, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if err := vm.ready(); err != nil {
		return nil, err
	}
	events, err := vm.state.EventCount()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"state":  vm.status.String(),
		"events": events,
	}, nil
}

func (vm *VM) CreateHandlers(context.Context) (map[string]http.Handler, error) {
	if !vm.APIEnabled {
		return nil, errAPIDisabled
	}

	server := rpc.NewServer()
	server.RegisterCodec(json.NewCodec(), "application/json")
	server.RegisterCodec(json.NewCodec(), "application/json;charset=UTF-8")
	if vm.registry != nil {
		utilmetric.Intercept(
			server,
			utilmetric.NewAPIInterceptor(vm.MetricsNamespace, vm.registry),
		)
	}

	service := api.NewService(vm, vm.log, api.Config{
		MaxQueryLimit: vm.MaxQueryLimit,
		AllowRelease:  vm.AllowAPIRelease,
	})
	return map[string]http.Handler{
		Endpoint: server,
	}, server.RegisterService(service, Name)
}

// ready must be called with the lock held.
func (vm *VM) ready() error {
	switch {
	case vm.ledger == nil:
		return errNotInitialized
	case vm.status == vmpkg.Stopped:
		return errShutdown
	default:
		return nil
	}
}

// Clock exposes the VM clock so hosts and tests can pin the time used by
// [VM.ReleaseNow].
func (vm *VM) Clock() *mockable.Clock {
	return &vm.clock
}

// Now returns the current VM time.
func (vm *VM) Now() time.Time {
	return vm.clock.Time()
}

func (vm *VM) Metadata() state.Metadata {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.metadata == nil {
		return state.Metadata{}
	}
	return *vm.metadata
}

// Transfer moves [amount] from [from] to [to].
func (vm *VM) Transfer(from, to ids.ShortID, amount *uint256.Int) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if err := vm.ready(); err != nil {
		return err
	}
	if err := vm.ledger.Transfer(from, to, amount); err != nil {
		vm.state.Abort()
		vm.metrics.MarkTransferRejected()
		vm.log.Debug("rejected transfer",
			log.Stringer("from", from),
			log.Stringer("to", to),
			log.Err(err),
		)
		return err
	}
	if err := vm.state.Commit(); err != nil {
		vm.state.Abort()
		return fmt.Errorf("failed to commit transfer: %w", err)
	}

	vm.metrics.MarkTransferAccepted()
	vm.log.Debug("accepted transfer",
		log.Stringer("from", from),
		log.Stringer("to", to),
		log.String("amount", amount.Dec()),
	)
	return nil
}

// Release mints everything unlocked at [now] that has not been released yet
// to the beneficiary. Only the owner may call it.
func (vm *VM) Release(caller ids.ShortID, now time.Time) (*uint256.Int, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if err := vm.ready(); err != nil {
		return nil, err
	}
	minted, err := vm.controller.Release(caller, now)
	if err != nil {
		vm.state.Abort()
		vm.log.Debug("rejected release",
			log.Stringer("caller", caller),
			log.Err(err),
		)
		return nil, err
	}
	if minted.IsZero() {
		vm.state.Abort()
		vm.metrics.MarkRelease(minted)
		return minted, nil
	}
	if err := vm.state.Commit(); err != nil {
		vm.state.Abort()
		return nil, fmt.Errorf("failed to commit release: %w", err)
	}

	vm.metrics.MarkRelease(minted)
	if err := vm.observe(); err != nil {
		vm.log.Warn("failed to update vesting metrics",
			log.Err(err),
		)
	}
	vm.log.Info("released vested tokens",
		log.Stringer("beneficiary", vm.controller.Beneficiary()),
		log.String("amount", minted.Dec()),
		log.Time("at", now),
	)
	return minted, nil
}

// ReleaseNow is [VM.Release] at the VM clock's current time.
func (vm *VM) ReleaseNow(caller ids.ShortID) (*uint256.Int, time.Time, error) {
	now := vm.Now()
	minted, err := vm.Release(caller, now)
	return minted, now, err
}

// GetReleasableAmount returns the cumulative amount unlocked at [now],
// including amounts already released.
func (vm *VM) GetReleasableAmount(now time.Time) (*uint256.Int, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if err := vm.ready(); err != nil {
		return nil, err
	}
	return vm.controller.ReleasableAmount(now), nil
}

// Pending returns the amount a release at [now] would mint.
func (vm *VM) Pending(now time.Time) (*uint256.Int, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if err := vm.ready(); err != nil {
		return nil, err
	}
	return vm.controller.Pending(now)
}

func (vm *VM) BalanceOf(addr ids.ShortID) (*uint256.Int, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if err := vm.ready(); err != nil {
		return nil, err
	}
	return vm.ledger.BalanceOf(addr)
}

func (vm *VM) Supply() (api.Supply, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if err := vm.ready(); err != nil {
		return api.Supply{}, err
	}
	total, err := vm.ledger.TotalSupply()
	if err != nil {
		return api.Supply{}, err
	}
	reserve, err := vm.ledger.Reserve()
	if err != nil {
		return api.Supply{}, err
	}
	released, err := vm.controller.Released()
	if err != nil {
		return api.Supply{}, err
	}
	return api.Supply{
		Total:       total,
		Circulating: new(uint256.Int).Sub(total, reserve),
		Reserve:     reserve,
		Released:    released,
	}, nil
}

func (vm *VM) Schedule() *vesting.Schedule {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.controller == nil {
		return nil
	}
	return vm.controller.Schedule()
}

// Events returns up to [limit] ledger events starting at sequence number
// [start].
func (vm *VM) Events(start uint64, limit int) ([]ledger.Event, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if err := vm.ready(); err != nil {
		return nil, err
	}
	return vm.state.GetEvents(start, min(limit, vm.MaxQueryLimit))
}

// Holdings returns up to [limit] non-zero balances in address order,
// starting at [start].
func (vm *VM) Holdings(start ids.ShortID, limit int) ([]state.Holding, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if err := vm.ready(); err != nil {
		return nil, err
	}
	return vm.state.GetHoldings(start, min(limit, vm.MaxQueryLimit))
}
