package sim

import (
	"sort"

	"github.com/pitsim/pitsim/internal/domain"
)

// markToMarket recomputes the participant's pnl as cash plus the sum over all
// assets of position times current price.
func (e *Engine) markToMarket(p *domain.Participant) {
	pnl := p.Cash
	for id, qty := range p.Positions {
		if a, ok := e.assetIdx[id]; ok {
			pnl += float64(qty) * a.Price
		}
	}
	p.PnL = pnl
}

// revalueAll marks every participant to market. Called whenever any asset
// price changes, since every valuation depends on global prices.
func (e *Engine) revalueAll() {
	for _, p := range e.participants {
		e.markToMarket(p)
	}
}

// updateLeaderboard rebuilds the ranking from scratch: descending by pnl,
// ties broken by identity token ascending so the order is deterministic, and
// truncated to the configured size. It carries no incremental state.
func (e *Engine) updateLeaderboard() {
	entries := make([]domain.LeaderboardEntry, 0, len(e.participants))
	for _, p := range e.participants {
		entries = append(entries, domain.LeaderboardEntry{
			ID:   p.ID,
			Name: p.Name,
			PnL:  p.PnL,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PnL != entries[j].PnL {
			return entries[i].PnL > entries[j].PnL
		}
		return entries[i].ID < entries[j].ID
	})

	if len(entries) > e.settings.LeaderboardSize {
		entries = entries[:e.settings.LeaderboardSize]
	}
	e.leaderboard = entries
}
