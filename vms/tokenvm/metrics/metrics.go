// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/luxfi/metric"

	"github.com/luxfi/meivm/utils/wrappers"
)

var _ Metrics = (*metricsImpl)(nil)

type Metrics interface {
	// Mark that a transfer was accepted.
	MarkTransferAccepted()
	// Mark that a transfer was rejected.
	MarkTransferRejected()
	// Mark that a release call minted [amount], which may be zero.
	MarkRelease(amount *uint256.Int)
	// Record the current reserve and cumulative released amount.
	SetVestingState(reserve, released *uint256.Int)
}

type metricsImpl struct {
	transfersAccepted metric.Counter
	transfersRejected metric.Counter
	releases          metric.Counter
	emptyReleases     metric.Counter
	reserve           metric.Gauge
	released          metric.Gauge
}

func New(registerer metric.Registerer) (Metrics, error) {
	m := &metricsImpl{
		transfersAccepted: metric.NewCounter(metric.CounterOpts{
			Name: "transfers_accepted",
			Help: "Number of transfers applied to the ledger",
		}),
		transfersRejected: metric.NewCounter(metric.CounterOpts{
			Name: "transfers_rejected",
			Help: "Number of transfers rejected by the ledger",
		}),
		releases: metric.NewCounter(metric.CounterOpts{
			Name: "releases",
			Help: "Number of release calls that minted a tranche",
		}),
		emptyReleases: metric.NewCounter(metric.CounterOpts{
			Name: "releases_empty",
			Help: "Number of release calls with nothing new to mint",
		}),
		reserve: metric.NewGauge(metric.GaugeOpts{
			Name: "reserve",
			Help: "Amount (in base units) of the locked allocation not yet released",
		}),
		released: metric.NewGauge(metric.GaugeOpts{
			Name: "released",
			Help: "Cumulative amount (in base units) released to the beneficiary",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(metric.AsCollector(m.transfersAccepted)),
		registerer.Register(metric.AsCollector(m.transfersRejected)),
		registerer.Register(metric.AsCollector(m.releases)),
		registerer.Register(metric.AsCollector(m.emptyReleases)),
		registerer.Register(metric.AsCollector(m.reserve)),
		registerer.Register(metric.AsCollector(m.released)),
	)
	return m, errs.Err
}

func (m *metricsImpl) MarkTransferAccepted() {
	m.transfersAccepted.Inc()
}

func (m *metricsImpl) MarkTransferRejected() {
	m.transfersRejected.Inc()
}

func (m *metricsImpl) MarkRelease(amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		m.emptyReleases.Inc()
		return
	}
	m.releases.Inc()
}

func (m *metricsImpl) SetVestingState(reserve, released *uint256.Int) {
	m.reserve.Set(toFloat(reserve))
	m.released.Set(toFloat(released))
}

func toFloat(v *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
