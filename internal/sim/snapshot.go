package sim

import (
	"github.com/shopspring/decimal"

	"github.com/pitsim/pitsim/internal/domain"
)

// buildSnapshot assembles the outward-facing state payload. Prices and pnl are
// rounded to two decimals for display only; internal state keeps full
// precision. The returned snapshot is a copy.
func (e *Engine) buildSnapshot() domain.Snapshot {
	assets := make([]domain.AssetQuote, 0, len(e.assets))
	for _, a := range e.assets {
		assets = append(assets, domain.AssetQuote{
			ID:    a.ID,
			Price: round2(a.Price),
		})
	}

	board := make([]domain.LeaderboardEntry, len(e.leaderboard))
	for i, entry := range e.leaderboard {
		board[i] = domain.LeaderboardEntry{
			ID:   entry.ID,
			Name: entry.Name,
			PnL:  round2(entry.PnL),
		}
	}

	return domain.Snapshot{
		Tick:        e.tick,
		Assets:      assets,
		Leaderboard: board,
	}
}

// round2 rounds to two decimal places, half away from zero, without the
// float artifacts of a naive multiply-round-divide.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
