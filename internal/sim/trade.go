package sim

import (
	"log/slog"
	"math"
	"time"

	"github.com/pitsim/pitsim/internal/domain"
)

// handleTrade applies an order to the market. There is no rejection path for
// insufficient cash or position limits: any participant may trade any quantity
// at any time, shorts included. Unknown assets and sides are silent no-ops.
func (e *Engine) handleTrade(c tradeCmd) {
	asset, ok := e.assetIdx[c.asset]
	if !ok {
		e.logger.Debug("trade for unknown asset ignored",
			slog.String("participant", c.id),
			slog.String("asset", string(c.asset)),
		)
		if e.metrics != nil {
			e.metrics.TradesIgnored.Inc()
		}
		return
	}
	if !c.side.Valid() {
		e.logger.Debug("trade with unknown side ignored",
			slog.String("participant", c.id),
			slog.String("side", string(c.side)),
		)
		if e.metrics != nil {
			e.metrics.TradesIgnored.Inc()
		}
		return
	}

	p := e.getOrCreateParticipant(c.id)

	// Cash and position settle at the pre-impact price.
	price := asset.Price
	notional := float64(c.qty) * price
	impact := float64(c.qty) * e.settings.ImpactPerUnit

	switch c.side {
	case domain.SideBuy:
		p.Positions[asset.ID] += c.qty
		p.Cash -= notional
		asset.Price = clampPrice(asset.Price*(1+impact), e.settings.PriceFloor)
	case domain.SideSell:
		p.Positions[asset.ID] -= c.qty
		p.Cash += notional
		asset.Price = clampPrice(asset.Price*(1-impact), e.settings.PriceFloor)
	}
	asset.UpdatedAt = time.Now().UTC()

	// Impact moved the price, so everyone's valuation moved with it.
	e.revalueAll()
	e.updateLeaderboard()
	e.broadcast()

	if e.metrics != nil {
		e.metrics.TradesTotal.WithLabelValues(string(asset.ID), string(c.side)).Inc()
	}
	e.logger.Info("trade executed",
		slog.String("participant", c.id),
		slog.String("asset", string(asset.ID)),
		slog.String("side", string(c.side)),
		slog.Int64("qty", c.qty),
		slog.Float64("price", price),
	)
}

// sanitizeQuantity coerces client-supplied quantity to a positive integer with
// a floor of 1. Non-numeric, zero, and negative input all become 1.
func sanitizeQuantity(qty float64) int64 {
	if math.IsNaN(qty) || math.IsInf(qty, 0) {
		return 1
	}
	n := int64(math.Floor(qty))
	if n < 1 {
		return 1
	}
	return n
}
