// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
)

type EventKind uint8

const (
	TransferEvent EventKind = iota
	MintEvent
)

func (k EventKind) String() string {
	switch k {
	case TransferEvent:
		return "transfer"
	case MintEvent:
		return "mint"
	default:
		return "unknown"
	}
}

// Event is a single balance change. Mints have an empty From.
type Event struct {
	Seq    uint64
	Kind   EventKind
	From   ids.ShortID
	To     ids.ShortID
	Amount *uint256.Int
}
