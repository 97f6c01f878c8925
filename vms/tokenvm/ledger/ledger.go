// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger implements a fixed-supply fungible token ledger. Tokens that
// are not yet liquid sit in an unreleased reserve and can only leave it
// through the mint capability handed out by GrantMint.
package ledger

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"

	safemath "github.com/luxfi/meivm/utils/math"
)

var (
	ErrInsufficientBalance = errors.New("transfer amount exceeds balance")
	ErrCapabilityDenied    = errors.New("mint capability denied")
	ErrZeroAmount          = errors.New("amount must be positive")
	ErrZeroAddress         = errors.New("empty address")
	ErrReserveExhausted    = errors.New("mint amount exceeds unreleased reserve")
	ErrAlreadyInitialized  = errors.New("ledger already initialized")
	ErrInvalidSupply       = errors.New("invalid supply")
)

// Store is the persistent backing of a Ledger. Unknown accounts must read as
// zero.
type Store interface {
	GetBalance(addr ids.ShortID) (*uint256.Int, error)
	SetBalance(addr ids.ShortID, amount *uint256.Int) error
	GetReserve() (*uint256.Int, error)
	SetReserve(amount *uint256.Int) error
	GetTotalSupply() (*uint256.Int, error)
	SetTotalSupply(amount *uint256.Int) error
}

// EventSink receives one event per successful balance change, in call order.
type EventSink interface {
	Emit(Event) error
}

// MintKey is the capability to move tokens out of the reserve of the ledger
// that issued it.
type MintKey struct {
	ledger *Ledger
}

type Ledger struct {
	store   Store
	sink    EventSink
	key     *MintKey
	granted bool
}

func New(store Store, sink EventSink) *Ledger {
	l := &Ledger{
		store: store,
		sink:  sink,
	}
	l.key = &MintKey{ledger: l}
	return l
}

// Genesis fixes the total supply, credits [liquid] to [owner] and places the
// remainder in the reserve. It may only run against an empty store.
func (l *Ledger) Genesis(totalSupply *uint256.Int, owner ids.ShortID, liquid *uint256.Int) error {
	if totalSupply == nil || totalSupply.IsZero() {
		return fmt.Errorf("%w: total supply must be positive", ErrInvalidSupply)
	}
	if liquid == nil {
		liquid = new(uint256.Int)
	}
	if owner == ids.ShortEmpty {
		return fmt.Errorf("%w: owner", ErrZeroAddress)
	}
	reserve, err := safemath.Sub256(totalSupply, liquid)
	if err != nil {
		return fmt.Errorf("%w: liquid %s exceeds total %s", ErrInvalidSupply, liquid.Dec(), totalSupply.Dec())
	}
	current, err := l.store.GetTotalSupply()
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return ErrAlreadyInitialized
	}

	if err := l.store.SetTotalSupply(totalSupply.Clone()); err != nil {
		return err
	}
	if err := l.store.SetReserve(reserve); err != nil {
		return err
	}
	if liquid.IsZero() {
		return nil
	}
	if err := l.store.SetBalance(owner, liquid.Clone()); err != nil {
		return err
	}
	return l.sink.Emit(Event{
		Kind:   MintEvent,
		To:     owner,
		Amount: liquid.Clone(),
	})
}

// GrantMint returns the mint capability. It can be granted exactly once.
func (l *Ledger) GrantMint() (*MintKey, error) {
	if l.granted {
		return nil, ErrCapabilityDenied
	}
	l.granted = true
	return l.key, nil
}

// Mint moves [amount] from the reserve to [to]. The total supply is
// unchanged.
func (l *Ledger) Mint(key *MintKey, to ids.ShortID, amount *uint256.Int) error {
	if key == nil || key.ledger != l || !l.granted {
		return ErrCapabilityDenied
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	if to == ids.ShortEmpty {
		return ErrZeroAddress
	}

	reserve, err := l.store.GetReserve()
	if err != nil {
		return err
	}
	if reserve.Lt(amount) {
		return fmt.Errorf("%w: reserve %s, requested %s", ErrReserveExhausted, reserve.Dec(), amount.Dec())
	}
	balance, err := l.store.GetBalance(to)
	if err != nil {
		return err
	}
	newBalance, err := safemath.Add256(balance, amount)
	if err != nil {
		return err
	}

	if err := l.store.SetReserve(new(uint256.Int).Sub(reserve, amount)); err != nil {
		return err
	}
	if err := l.store.SetBalance(to, newBalance); err != nil {
		return err
	}
	return l.sink.Emit(Event{
		Kind:   MintEvent,
		To:     to,
		Amount: amount.Clone(),
	})
}

// Transfer moves [amount] from [from] to [to].
func (l *Ledger) Transfer(from, to ids.ShortID, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	if to == ids.ShortEmpty {
		return ErrZeroAddress
	}

	fromBalance, err := l.store.GetBalance(from)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientBalance, fromBalance.Dec(), amount.Dec())
	}
	if err := l.store.SetBalance(from, new(uint256.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}

	// Read after the debit so a self-transfer nets to zero.
	toBalance, err := l.store.GetBalance(to)
	if err != nil {
		return err
	}
	newToBalance, err := safemath.Add256(toBalance, amount)
	if err != nil {
		return err
	}
	if err := l.store.SetBalance(to, newToBalance); err != nil {
		return err
	}
	return l.sink.Emit(Event{
		Kind:   TransferEvent,
		From:   from,
		To:     to,
		Amount: amount.Clone(),
	})
}

// BalanceOf returns the balance of [addr], zero if it has never held tokens.
func (l *Ledger) BalanceOf(addr ids.ShortID) (*uint256.Int, error) {
	return l.store.GetBalance(addr)
}

func (l *Ledger) TotalSupply() (*uint256.Int, error) {
	return l.store.GetTotalSupply()
}

// Reserve returns the amount that has not been minted out yet.
func (l *Ledger) Reserve() (*uint256.Int, error) {
	return l.store.GetReserve()
}

// CirculatingSupply is the total supply less the reserve.
func (l *Ledger) CirculatingSupply() (*uint256.Int, error) {
	total, err := l.store.GetTotalSupply()
	if err != nil {
		return nil, err
	}
	reserve, err := l.store.GetReserve()
	if err != nil {
		return nil, err
	}
	return safemath.Sub256(total, reserve)
}
