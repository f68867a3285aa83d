// Package domain defines the core entities of the market simulation: assets,
// participants, snapshots, and the interfaces that connect the simulation
// engine to the transport layer.
package domain

import "time"

// AssetID identifies one of the fixed set of tradable assets.
type AssetID string

// Asset is a single tradable instrument. Price holds the full-precision
// internal value; rounding to two decimals happens only when a snapshot is
// built for clients. Price is always strictly positive: the engine clamps it
// to its configured floor after every mutation.
type Asset struct {
	ID        AssetID   `json:"asset"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether the side is one of the two known directions.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}
