package sim

import "time"

// applyDrift is the simulation heartbeat: one cycle advances the clock, moves
// every asset price by a bounded symmetric random step, revalues every
// participant, reranks, and broadcasts. State advances even with zero trading
// activity.
func (e *Engine) applyDrift() {
	e.tick++

	now := time.Now().UTC()
	for _, a := range e.assets {
		step := (e.rng.Float64()*2 - 1) * e.settings.DriftRange
		a.Price = clampPrice(a.Price+step, e.settings.PriceFloor)
		a.UpdatedAt = now
	}

	// Every participant's valuation depends on global prices, so a price
	// move revalues everyone, not just active traders.
	e.revalueAll()
	e.updateLeaderboard()
	e.broadcast()

	if e.metrics != nil {
		e.metrics.TicksTotal.Inc()
	}
}
