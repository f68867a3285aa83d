package domain

import "context"

// AssetQuote is an asset's display price inside a snapshot, rounded to two
// decimals.
type AssetQuote struct {
	ID    AssetID `json:"asset"`
	Price float64 `json:"price"`
}

// Snapshot is the complete, self-consistent state payload broadcast to every
// client. Snapshots are copies: mutating one never touches engine state.
type Snapshot struct {
	Tick        uint64             `json:"tick"`
	Assets      []AssetQuote       `json:"assets"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// Broadcaster receives every snapshot the engine produces, once per drift
// cycle and once per mutating client action. Implementations fan the snapshot
// out to all connected clients.
type Broadcaster interface {
	Broadcast(Snapshot)
}

// Simulator is the command surface the transport layer uses to drive the
// engine. All methods funnel into the engine's single-consumer command queue,
// so callers never observe a partially applied mutation.
type Simulator interface {
	// Join registers the identity (creating its participant lazily) and
	// returns the snapshot the new connection should be initialized with.
	Join(ctx context.Context, id string) (Snapshot, error)
	// Leave removes the participant from future leaderboard computations.
	Leave(id string)
	// SetName updates the participant's display name after sanitization.
	SetName(id, name string)
	// Trade applies a buy or sell order. Invalid input is coerced or
	// silently dropped, never rejected with an error.
	Trade(id, asset, side string, qty float64)
}
