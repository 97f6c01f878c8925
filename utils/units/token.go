// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package units

import "github.com/holiman/uint256"

// Decimals is the number of fractional digits of one whole token.
const Decimals = 18

var tokenUnit = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))

// Tokens returns n whole tokens expressed in base units.
func Tokens(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), tokenUnit)
}

// Denominations of value, in base units. Each call returns a new value.

func Token() *uint256.Int { return Tokens(1) }

func Kilo() *uint256.Int { return Tokens(1_000) }

func Mega() *uint256.Int { return Tokens(1_000_000) }

func Giga() *uint256.Int { return Tokens(1_000_000_000) }
