// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state persists token balances, the reserve, the released counter
// and the balance-change log.
package state

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/cache/lru"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"

	"github.com/luxfi/meivm/vms/tokenvm/ledger"
)

const defaultBalanceCacheSize = 1024

var (
	_ State = (*state)(nil)

	errCorruptAmount = errors.New("stored amount is not 32 bytes")

	BalancePrefix   = []byte("balance")
	EventPrefix     = []byte("event")
	SingletonPrefix = []byte("singleton")

	InitializedKey = []byte("initialized")
	MetadataKey    = []byte("metadata")
	TotalSupplyKey = []byte("total supply")
	ReserveKey     = []byte("reserve")
	ReleasedKey    = []byte("released")
	EventCountKey  = []byte("event count")
)

// Holding is a non-zero balance.
type Holding struct {
	Address ids.ShortID
	Balance *uint256.Int
}

type State interface {
	ledger.Store
	ledger.EventSink

	GetReleased() (*uint256.Int, error)
	SetReleased(*uint256.Int) error

	IsInitialized() (bool, error)
	SetInitialized() error
	GetMetadata() (*Metadata, error)
	SetMetadata(*Metadata) error

	// GetEvents returns up to [limit] events with sequence numbers >= [start].
	GetEvents(start uint64, limit int) ([]ledger.Event, error)
	EventCount() (uint64, error)
	// GetHoldings returns up to [limit] non-zero balances in address order,
	// starting at [start].
	GetHoldings(start ids.ShortID, limit int) ([]Holding, error)

	// Commit writes every change made since the last Commit or Abort.
	Commit() error
	// Abort discards every change made since the last Commit or Abort.
	Abort()
	Close() error
}

type state struct {
	baseDB *versiondb.Database

	balanceDB   database.Database
	eventDB     database.Database
	singletonDB database.Database

	balanceCacheSize int
	balanceCache     *lru.Cache[ids.ShortID, *uint256.Int]
}

func New(db database.Database, balanceCacheSize int) State {
	if balanceCacheSize <= 0 {
		balanceCacheSize = defaultBalanceCacheSize
	}
	baseDB := versiondb.New(db)
	return &state{
		baseDB:           baseDB,
		balanceDB:        prefixdb.New(BalancePrefix, baseDB),
		eventDB:          prefixdb.New(EventPrefix, baseDB),
		singletonDB:      prefixdb.New(SingletonPrefix, baseDB),
		balanceCacheSize: balanceCacheSize,
		balanceCache:     lru.NewCache[ids.ShortID, *uint256.Int](balanceCacheSize),
	}
}

func (s *state) GetBalance(addr ids.ShortID) (*uint256.Int, error) {
	if balance, ok := s.balanceCache.Get(addr); ok {
		return balance.Clone(), nil
	}
	balance, err := getAmount(s.balanceDB, addr[:])
	if err != nil {
		return nil, err
	}
	s.balanceCache.Put(addr, balance.Clone())
	return balance, nil
}

func (s *state) SetBalance(addr ids.ShortID, amount *uint256.Int) error {
	var err error
	if amount.IsZero() {
		err = s.balanceDB.Delete(addr[:])
	} else {
		err = putAmount(s.balanceDB, addr[:], amount)
	}
	if err != nil {
		return err
	}
	s.balanceCache.Put(addr, amount.Clone())
	return nil
}

func (s *state) GetReserve() (*uint256.Int, error) {
	return getAmount(s.singletonDB, ReserveKey)
}

func (s *state) SetReserve(amount *uint256.Int) error {
	return putAmount(s.singletonDB, ReserveKey, amount)
}

func (s *state) GetTotalSupply() (*uint256.Int, error) {
	return getAmount(s.singletonDB, TotalSupplyKey)
}

func (s *state) SetTotalSupply(amount *uint256.Int) error {
	return putAmount(s.singletonDB, TotalSupplyKey, amount)
}

func (s *state) GetReleased() (*uint256.Int, error) {
	return getAmount(s.singletonDB, ReleasedKey)
}

func (s *state) SetReleased(amount *uint256.Int) error {
	return putAmount(s.singletonDB, ReleasedKey, amount)
}

func (s *state) IsInitialized() (bool, error) {
	return s.singletonDB.Has(InitializedKey)
}

func (s *state) SetInitialized() error {
	return s.singletonDB.Put(InitializedKey, nil)
}

func (s *state) GetMetadata() (*Metadata, error) {
	bytes, err := s.singletonDB.Get(MetadataKey)
	if err != nil {
		return nil, err
	}
	m := &Metadata{}
	if _, err := Codec.Unmarshal(bytes, m); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return m, nil
}

func (s *state) SetMetadata(m *Metadata) error {
	bytes, err := Codec.Marshal(CodecVersion, m)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}
	return s.singletonDB.Put(MetadataKey, bytes)
}

// Emit appends [event] to the log, assigning it the next sequence number.
func (s *state) Emit(event ledger.Event) error {
	seq, err := s.EventCount()
	if err != nil {
		return err
	}
	record := &eventRecord{
		Kind: uint8(event.Kind),
		From: event.From,
		To:   event.To,
	}
	if event.Amount != nil {
		record.Amount = event.Amount.Bytes32()
	}
	bytes, err := Codec.Marshal(CodecVersion, record)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	if err := s.eventDB.Put(database.PackUInt64(seq), bytes); err != nil {
		return err
	}
	return database.PutUInt64(s.singletonDB, EventCountKey, seq+1)
}

func (s *state) EventCount() (uint64, error) {
	count, err := database.GetUInt64(s.singletonDB, EventCountKey)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	return count, err
}

func (s *state) GetEvents(start uint64, limit int) ([]ledger.Event, error) {
	it := s.eventDB.NewIteratorWithStart(database.PackUInt64(start))
	defer it.Release()

	var events []ledger.Event
	for len(events) < limit && it.Next() {
		record := &eventRecord{}
		if _, err := Codec.Unmarshal(it.Value(), record); err != nil {
			return nil, fmt.Errorf("failed to parse event: %w", err)
		}
		seq, err := database.ParseUInt64(it.Key())
		if err != nil {
			return nil, err
		}
		events = append(events, ledger.Event{
			Seq:    seq,
			Kind:   ledger.EventKind(record.Kind),
			From:   record.From,
			To:     record.To,
			Amount: new(uint256.Int).SetBytes32(record.Amount[:]),
		})
	}
	return events, it.Error()
}

func (s *state) GetHoldings(start ids.ShortID, limit int) ([]Holding, error) {
	it := s.balanceDB.NewIteratorWithStart(start[:])
	defer it.Release()

	var holdings []Holding
	for len(holdings) < limit && it.Next() {
		addr, err := ids.ToShortID(it.Key())
		if err != nil {
			return nil, err
		}
		balance, err := parseAmount(it.Value())
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, Holding{
			Address: addr,
			Balance: balance,
		})
	}
	return holdings, it.Error()
}

func (s *state) Commit() error {
	return s.baseDB.Commit()
}

func (s *state) Abort() {
	s.baseDB.Abort()
	s.balanceCache = lru.NewCache[ids.ShortID, *uint256.Int](s.balanceCacheSize)
}

// Close closes the base database only. The prefixed databases forward Close
// to it, so closing them as well would report it closed more than once.
func (s *state) Close() error {
	return s.baseDB.Close()
}

func getAmount(db database.KeyValueReader, key []byte) (*uint256.Int, error) {
	bytes, err := db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(bytes)
}

func putAmount(db database.KeyValueWriter, key []byte, amount *uint256.Int) error {
	bytes := amount.Bytes32()
	return db.Put(key, bytes[:])
}

func parseAmount(bytes []byte) (*uint256.Int, error) {
	if len(bytes) != 32 {
		return nil, fmt.Errorf("%w: got %d", errCorruptAmount, len(bytes))
	}
	return new(uint256.Int).SetBytes32(bytes), nil
}
