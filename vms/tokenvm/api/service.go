// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api provides the JSON-RPC API of the token VM.
package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/utils/json"

	"github.com/luxfi/meivm/vms/tokenvm/ledger"
	"github.com/luxfi/meivm/vms/tokenvm/state"
	"github.com/luxfi/meivm/vms/tokenvm/vesting"
)

const defaultQueryLimit = 100

var (
	ErrInvalidAmount = errors.New("amount is not a decimal integer")
	ErrInvalidLimit  = errors.New("limit must be positive")
	ErrReleaseDenied = errors.New("release is not exposed over the api")
	ErrTimeRange     = errors.New("time out of range")
	errNoSchedule    = errors.New("vesting schedule unavailable")
)

// Supply is a snapshot of the supply accounting of the token.
type Supply struct {
	Total       *uint256.Int
	Circulating *uint256.Int
	Reserve     *uint256.Int
	Released    *uint256.Int
}

// VM is the token VM as seen by the API.
type VM interface {
	Metadata() state.Metadata
	Supply() (Supply, error)
	BalanceOf(addr ids.ShortID) (*uint256.Int, error)
	Transfer(from, to ids.ShortID, amount *uint256.Int) error
	ReleaseNow(caller ids.ShortID) (*uint256.Int, time.Time, error)
	GetReleasableAmount(now time.Time) (*uint256.Int, error)
	Pending(now time.Time) (*uint256.Int, error)
	Schedule() *vesting.Schedule
	Events(start uint64, limit int) ([]ledger.Event, error)
	Holdings(start ids.ShortID, limit int) ([]state.Holding, error)
	Now() time.Time
}

type Config struct {
	// MaxQueryLimit caps the page size of list queries
	MaxQueryLimit int
	// AllowRelease exposes Release
	AllowRelease bool
}

// Service is the "token" JSON-RPC service.
type Service struct {
	vm     VM
	log    log.Logger
	config Config
}

func NewService(vm VM, logger log.Logger, config Config) *Service {
	return &Service{
		vm:     vm,
		log:    logger,
		config: config,
	}
}

type EmptyArgs struct{}

type GetTokenInfoReply struct {
	Name              string      `json:"name"`
	Symbol            string      `json:"symbol"`
	Decimals          uint8       `json:"decimals"`
	TotalSupply       string      `json:"totalSupply"`
	CirculatingSupply string      `json:"circulatingSupply"`
	Reserve           string      `json:"reserve"`
	Released          string      `json:"released"`
	Owner             ids.ShortID `json:"owner"`
	Beneficiary       ids.ShortID `json:"beneficiary"`
}

// GetTokenInfo returns the static description and the supply of the token.
func (s *Service) GetTokenInfo(_ *http.Request, _ *EmptyArgs, reply *GetTokenInfoReply) error {
	s.log.Debug("API called",
		log.String("service", "token"),
		log.String("method", "getTokenInfo"),
	)

	supply, err := s.vm.Supply()
	if err != nil {
		return err
	}
	metadata := s.vm.Metadata()
	reply.Name = metadata.Name
	reply.Symbol = metadata.Symbol
	reply.Decimals = metadata.Decimals
	reply.TotalSupply = supply.Total.Dec()
	reply.CirculatingSupply = supply.Circulating.Dec()
	reply.Reserve = supply.Reserve.Dec()
	reply.Released = supply.Released.Dec()
	reply.Owner = metadata.Owner
	reply.Beneficiary = metadata.Beneficiary
	return nil
}

type BalanceOfArgs struct {
	Address ids.ShortID `json:"address"`
}

type BalanceReply struct {
	Balance string `json:"balance"`
}

func (s *Service) BalanceOf(_ *http.Request, args *BalanceOfArgs, reply *BalanceReply) error {
	s.log.Debug("API called",
		log.String("service", "token"),
		log.String("method", "balanceOf"),
		log.Stringer("address", args.Address),
	)

	balance, err := s.vm.BalanceOf(args.Address)
	if err != nil {
		return err
	}
	reply.Balance = balance.Dec()
	return nil
}

type TransferArgs struct {
	From   ids.ShortID `json:"from"`
	To     ids.ShortID `json:"to"`
	Amount string      `json:"amount"`
}

type TransferReply struct {
	FromBalance string `json:"fromBalance"`
	ToBalance   string `json:"toBalance"`
}

// Transfer moves tokens between two accounts. The API does not authenticate
// [TransferArgs.From]; it is meant for nodes that front an authenticated
// gateway or for local development.
func (s *Service) Transfer(_ *http.Request, args *TransferArgs, reply *TransferReply) error {
	s.log.Debug("API called",
		log.String("service", "token"),
		log.String("method", "transfer"),
		log.Stringer("from", args.From),
		log.Stringer("to", args.To),
	)

	amount, err := parseAmount(args.Amount)
	if err != nil {
		return err
	}
	if err := s.vm.Transfer(args.From, args.To, amount); err != nil {
		return err
	}

	fromBalance, err := s.vm.BalanceOf(args.From)
	if err != nil {
		return err
	}
	toBalance, err := s.vm.BalanceOf(args.To)
	if err != nil {
		return err
	}
	reply.FromBalance = fromBalance.Dec()
	reply.ToBalance = toBalance.Dec()
	return nil
}

type ReleaseArgs struct {
	Caller ids.ShortID `json:"caller"`
}

type ReleaseReply struct {
	Released string      `json:"released"`
	Time     json.Uint64 `json:"time"`
}

// Release releases everything vested at the node's current time.
func (s *Service) Release(_ *http.Request, args *ReleaseArgs, reply *ReleaseReply) error {
	s.log.Debug("API called",
		log.String("service", "token"),
		log.String("method", "release"),
		log.Stringer("caller", args.Caller),
	)

	if !s.config.AllowRelease {
		return ErrReleaseDenied
	}
	minted, now, err := s.vm.ReleaseNow(args.Caller)
	if err != nil {
		return err
	}
	reply.Released = minted.Dec()
	reply.Time = json.Uint64(now.Unix())
	return nil
}

type TimeArgs struct {
	// Time in unix seconds. Zero selects the node's current time.
	Time json.Uint64 `json:"time"`
}

type ReleasableReply struct {
	Time       json.Uint64 `json:"time"`
	Releasable string      `json:"releasable"`
	Pending    string      `json:"pending"`
}

// GetReleasableAmount returns the cumulative amount unlocked at the requested
// time, and how much of it has not been released yet.
func (s *Service) GetReleasableAmount(_ *http.Request, args *TimeArgs, reply *ReleasableReply) error {
	s.log.Debug("API called",
		log.String("service", "token"),
		log.String("method", "getReleasableAmount"),
	)

	now, err := s.timeOf(args.Time)
	if err != nil {
		return err
	}
	releasable, err := s.vm.GetReleasableAmount(now)
	if err != nil {
		return err
	}
	pending, err := s.vm.Pending(now)
	if err != nil {
		return err
	}
	reply.Time = json.Uint64(now.Unix())
	reply.Releasable = releasable.Dec()
	reply.Pending = pending.Dec()
	return nil
}

type APITranche struct {
	Index      json.Uint64 `json:"index"`
	UnlockTime json.Uint64 `json:"unlockTime"`
	Cumulative string      `json:"cumulative"`
}

type GetScheduleReply struct {
	Epoch            json.Uint64  `json:"epoch"`
	PeriodSeconds    json.Uint64  `json:"periodSeconds"`
	CliffPeriods     json.Uint64  `json:"cliffPeriods"`
	TranchePeriods   json.Uint64  `json:"tranchePeriods"`
	LockedAllocation string       `json:"lockedAllocation"`
	TrancheAmount    string       `json:"trancheAmount"`
	Tranches         []APITranche `json:"tranches"`
}

// GetSchedule returns the vesting parameters and the unlock timetable.
func (s *Service) GetSchedule(_ *http.Request, _ *EmptyArgs, reply *GetScheduleReply) error {
	s.log.Debug("API called",
		log.String("service", "token"),
		log.String("method", "getSchedule"),
	)

	schedule := s.vm.Schedule()
	if schedule == nil {
		return errNoSchedule
	}
	timetable, err := schedule.Timetable()
	if err != nil {
		return err
	}

	params := schedule.Params()
	reply.Epoch = json.Uint64(schedule.Epoch().Unix())
	reply.PeriodSeconds = json.Uint64(params.PeriodLength / time.Second)
	reply.CliffPeriods = json.Uint64(params.CliffPeriods)
	reply.TranchePeriods = json.Uint64(params.TranchePeriods)
	reply.LockedAllocation = schedule.LockedAllocation().Dec()
	reply.TrancheAmount = schedule.TrancheAmount().Dec()
	reply.Tranches = make([]APITranche, len(timetable))
	for i, tranche := range timetable {
		reply.Tranches[i] = APITranche{
			Index:      json.Uint64(tranche.Index),
			UnlockTime: json.Uint64(tranche.UnlockTime.Unix()),
			Cumulative: tranche.Cumulative.Dec(),
		}
	}
	return nil
}

type GetEventsArgs struct {
	Start json.Uint64 `json:"start"`
	Limit json.Uint64 `json:"limit"`
}

type APIEvent struct {
	Seq    json.Uint64 `json:"seq"`
	Kind   string      `json:"kind"`
	From   ids.ShortID `json:"from"`
	To     ids.ShortID `json:"to"`
	Amount string      `json:"amount"`
}

type GetEventsReply struct {
	Events []APIEvent `json:"events"`
	// Next is the sequence number to resume from
	Next json.Uint64 `json:"next"`
}

// GetEvents pages through the transfer and mint log.
func (s *Service) GetEvents(_ *http.Request, args *GetEventsArgs, reply *GetEventsReply) error {
	s.log.Debug("API called",
		log.String("service", "token"),
		log.String("method", "getEvents"),
		log.Uint64("start", uint64(args.Start)),
	)

	limit, err := s.limitOf(args.Limit)
	if err != nil {
		return err
	}
	events, err := s.vm.Events(uint64(args.Start), limit)
	if err != nil {
		return err
	}

	reply.Events = make([]APIEvent, len(events))
	reply.Next = args.Start
	for i, event := range events {
		reply.Events[i] = APIEvent{
			Seq:    json.Uint64(event.Seq),
			Kind:   event.Kind.String(),
			From:   event.From,
			To:     event.To,
			Amount: event.Amount.Dec(),
		}
		reply.Next = json.Uint64(event.Seq + 1)
	}
	return nil
}

type GetHoldersArgs struct {
	Start ids.ShortID `json:"start"`
	Limit json.Uint64 `json:"limit"`
}

type APIHolding struct {
	Address ids.ShortID `json:"address"`
	Balance string      `json:"balance"`
}

type GetHoldersReply struct {
	Holders []APIHolding `json:"holders"`
}

// GetHolders pages through the non-zero balances in address order.
func (s *Service) GetHolders(_ *http.Request, args *GetHoldersArgs, reply *GetHoldersReply) error {
	s.log.Debug("API called",
		log.String("service", "token"),
		log.String("method", "getHolders"),
		log.Stringer("start", args.Start),
	)

	limit, err := s.limitOf(args.Limit)
	if err != nil {
		return err
	}
	holdings, err := s.vm.Holdings(args.Start, limit)
	if err != nil {
		return err
	}

	reply.Holders = make([]APIHolding, len(holdings))
	for i, holding := range holdings {
		reply.Holders[i] = APIHolding{
			Address: holding.Address,
			Balance: holding.Balance.Dec(),
		}
	}
	return nil
}

func (s *Service) timeOf(unix json.Uint64) (time.Time, error) {
	if unix == 0 {
		return s.vm.Now(), nil
	}
	if uint64(unix) > math.MaxInt64 {
		return time.Time{}, fmt.Errorf("%w: %d", ErrTimeRange, unix)
	}
	return time.Unix(int64(unix), 0), nil
}

func (s *Service) limitOf(limit json.Uint64) (int, error) {
	if limit == 0 {
		return min(defaultQueryLimit, s.config.MaxQueryLimit), nil
	}
	if s.config.MaxQueryLimit <= 0 {
		return 0, ErrInvalidLimit
	}
	return int(min(uint64(limit), uint64(s.config.MaxQueryLimit))), nil
}

func parseAmount(s string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return amount, nil
}
