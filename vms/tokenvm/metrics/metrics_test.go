// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/metric"

	"github.com/luxfi/meivm/utils/units"
)

func TestNew(t *testing.T) {
	require := require.New(t)

	m, err := New(metric.NewRegistry())
	require.NoError(err)

	m.MarkTransferAccepted()
	m.MarkTransferRejected()
	m.MarkRelease(new(uint256.Int))
	m.MarkRelease(units.Tokens(30_750_000))
	m.SetVestingState(units.Tokens(338_250_000), units.Tokens(30_750_000))
}

func TestToFloat(t *testing.T) {
	require.InDelta(t, 3.075e25, toFloat(units.Tokens(30_750_000)), 1e10)
	require.Zero(t, toFloat(new(uint256.Int)))
}
