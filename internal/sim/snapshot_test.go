package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, round2(1.234))
	assert.Equal(t, 1.24, round2(1.235))
	assert.Equal(t, -1.24, round2(-1.235))
	assert.Equal(t, 100.0, round2(100))
	// The classic float trap: 0.1+0.2 still displays as 0.30.
	assert.Equal(t, 0.3, round2(0.1+0.2))
}

func TestSnapshotRoundsForDisplayOnly(t *testing.T) {
	e := New(Settings{
		TickInterval: time.Hour,
		Seed:         1,
		Assets:       []AssetDef{{ID: "A", Price: 99.999}},
	}, nil, testLogger())

	p := e.getOrCreateParticipant("p1")
	p.Cash = 1.005
	e.markToMarket(p)
	e.updateLeaderboard()

	snap := e.buildSnapshot()

	require.Len(t, snap.Assets, 1)
	assert.Equal(t, 100.0, snap.Assets[0].Price)
	// Internal precision is untouched by display rounding.
	assert.Equal(t, 99.999, e.assetIdx["A"].Price)

	require.Len(t, snap.Leaderboard, 1)
	assert.Equal(t, 1.01, snap.Leaderboard[0].PnL)
	assert.Equal(t, 1.005, e.participants["p1"].PnL)
}

func TestSnapshotCarriesTick(t *testing.T) {
	e := newTestEngine(t)
	e.applyDrift()
	e.applyDrift()

	snap := e.buildSnapshot()
	assert.Equal(t, uint64(2), snap.Tick)
}
