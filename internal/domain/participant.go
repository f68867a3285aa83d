package domain

// Participant is one connected trader, keyed by an opaque per-connection
// identity token. Cash may go negative and positions may go short; the
// simulation imposes no margin checks.
type Participant struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Cash      float64           `json:"cash"`
	Positions map[AssetID]int64 `json:"positions"`
	// PnL is the mark-to-market value cash + Σ position·price. It is
	// recomputed after every mutation that touches this participant's
	// holdings or any asset's price, never served stale.
	PnL float64 `json:"pnl"`
}

// LeaderboardEntry is one row of the ranked leaderboard.
type LeaderboardEntry struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	PnL  float64 `json:"pnl"`
}
