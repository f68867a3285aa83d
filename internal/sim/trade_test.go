package sim

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitsim/pitsim/internal/domain"
)

func TestBuyConservation(t *testing.T) {
	e := newTestEngine(t)

	// Worked example: asset A starts at 100.00; buying 100 units costs
	// 10,000 at the pre-impact price, then impact lifts the price 20%.
	e.handleTrade(tradeCmd{id: "p1", asset: "A", side: domain.SideBuy, qty: 100})

	p := e.participants["p1"]
	require.NotNil(t, p)
	assert.InDelta(t, -10000, p.Cash, 1e-9)
	assert.Equal(t, int64(100), p.Positions["A"])
	assert.InDelta(t, 120, e.assetIdx["A"].Price, 1e-9)
	assert.InDelta(t, 2000, p.PnL, 1e-9)
}

func TestSellIsMirrorOfBuy(t *testing.T) {
	e := newTestEngine(t)

	e.handleTrade(tradeCmd{id: "p1", asset: "A", side: domain.SideSell, qty: 100})

	p := e.participants["p1"]
	require.NotNil(t, p)
	assert.InDelta(t, 10000, p.Cash, 1e-9)
	assert.Equal(t, int64(-100), p.Positions["A"])
	assert.InDelta(t, 80, e.assetIdx["A"].Price, 1e-9)
}

func TestShortSellingAllowed(t *testing.T) {
	e := newTestEngine(t)

	// No margin checks: selling without a position goes short, and a buy
	// larger than available cash goes through regardless.
	e.handleTrade(tradeCmd{id: "p1", asset: "B", side: domain.SideSell, qty: 10})
	assert.Equal(t, int64(-10), e.participants["p1"].Positions["B"])

	e.handleTrade(tradeCmd{id: "p1", asset: "A", side: domain.SideBuy, qty: 1000000})
	assert.Negative(t, e.participants["p1"].Cash)
}

func TestImpactDirection(t *testing.T) {
	e := newTestEngine(t)

	before := e.assetIdx["A"].Price
	e.handleTrade(tradeCmd{id: "p1", asset: "A", side: domain.SideBuy, qty: 1})
	assert.Greater(t, e.assetIdx["A"].Price, before)

	before = e.assetIdx["A"].Price
	e.handleTrade(tradeCmd{id: "p1", asset: "A", side: domain.SideSell, qty: 1})
	assert.Less(t, e.assetIdx["A"].Price, before)
}

func TestImpactClampsAtFloor(t *testing.T) {
	e := newTestEngine(t)

	// qty 500 makes the multiplier 1-500*0.002 = 0, qty beyond that would
	// go negative; both must clamp to the floor.
	e.handleTrade(tradeCmd{id: "p1", asset: "A", side: domain.SideSell, qty: 1000})
	assert.Equal(t, 0.01, e.assetIdx["A"].Price)
}

func TestUnknownAssetIsNoOp(t *testing.T) {
	e := newTestEngine(t)

	before := len(e.participants)
	e.handleTrade(tradeCmd{id: "p1", asset: "ZZZ", side: domain.SideBuy, qty: 5})

	assert.Equal(t, before, len(e.participants), "no participant should be created")
	for _, a := range e.assets {
		def := DefaultAssets[0]
		if a.ID == def.ID {
			assert.Equal(t, def.Price, a.Price)
		}
	}
}

func TestUnknownSideIsNoOp(t *testing.T) {
	e := newTestEngine(t)

	e.handleTrade(tradeCmd{id: "p1", asset: "A", side: "hold", qty: 5})

	assert.Empty(t, e.participants)
	assert.Equal(t, 100.0, e.assetIdx["A"].Price)
}

func TestTradeUpdatesAssetTimestamp(t *testing.T) {
	e := newTestEngine(t)
	stale := time.Now().UTC().Add(-time.Minute)
	e.assetIdx["A"].UpdatedAt = stale

	e.handleTrade(tradeCmd{id: "p1", asset: "A", side: domain.SideBuy, qty: 1})

	assert.True(t, e.assetIdx["A"].UpdatedAt.After(stale))
}

func TestSanitizeQuantity(t *testing.T) {
	assert.Equal(t, int64(5), sanitizeQuantity(5))
	assert.Equal(t, int64(2), sanitizeQuantity(2.7), "fractional input floors")
	assert.Equal(t, int64(1), sanitizeQuantity(0))
	assert.Equal(t, int64(1), sanitizeQuantity(-3))
	assert.Equal(t, int64(1), sanitizeQuantity(math.NaN()))
	assert.Equal(t, int64(1), sanitizeQuantity(math.Inf(1)))
	assert.Equal(t, int64(1), sanitizeQuantity(math.Inf(-1)))
}
