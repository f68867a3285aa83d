package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitsim/pitsim/internal/domain"
	"github.com/pitsim/pitsim/internal/sim"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startHub spins up a live engine + hub behind an httptest server. The tick
// interval is long enough that no drift broadcast interferes with the test.
func startHub(t *testing.T) (*httptest.Server, func()) {
	t.Helper()

	engine := sim.New(sim.Settings{
		TickInterval: time.Hour,
		Seed:         1,
	}, nil, testLogger())
	hub := NewHub(engine, nil, testLogger())
	engine.SetBroadcaster(hub)

	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)
	go hub.Run(ctx)

	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	return ts, func() {
		cancel()
		ts.Close()
	}
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) (string, domain.Snapshot, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(env.Payload, &snap))
	return env.Type, snap, frame
}

func TestInitSnapshotOnConnect(t *testing.T) {
	ts, stop := startHub(t)
	defer stop()

	conn := dial(t, ts)
	typ, snap, _ := readEvent(t, conn)

	assert.Equal(t, "init", typ)
	assert.Len(t, snap.Assets, len(sim.DefaultAssets))
	require.Len(t, snap.Leaderboard, 1, "the joiner itself appears in its init snapshot")
	assert.Equal(t, "anonymous", snap.Leaderboard[0].Name)
}

func TestBroadcastReachesAllClientsIdentically(t *testing.T) {
	ts, stop := startHub(t)
	defer stop()

	c1 := dial(t, ts)
	typ, _, _ := readEvent(t, c1)
	require.Equal(t, "init", typ)

	c2 := dial(t, ts)
	typ, _, _ = readEvent(t, c2)
	require.Equal(t, "init", typ)

	require.NoError(t, c1.WriteJSON(map[string]any{
		"type": "trade", "asset": "A", "side": "buy", "qty": 100,
	}))

	typ1, snap1, frame1 := readEvent(t, c1)
	typ2, snap2, frame2 := readEvent(t, c2)

	assert.Equal(t, "market_update", typ1)
	assert.Equal(t, "market_update", typ2)
	assert.Equal(t, frame1, frame2, "all clients see byte-identical frames")

	// The trader marks to 2000 pnl on the worked example and leads the board.
	require.Len(t, snap1.Leaderboard, 2)
	assert.InDelta(t, 2000, snap1.Leaderboard[0].PnL, 0.01)
	assert.Equal(t, snap1, snap2)
}

func TestSetNameShowsUpInNextBroadcast(t *testing.T) {
	ts, stop := startHub(t)
	defer stop()

	conn := dial(t, ts)
	typ, _, _ := readEvent(t, conn)
	require.Equal(t, "init", typ)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "set_name", "name": "bob",
	}))

	typ, snap, _ := readEvent(t, conn)
	assert.Equal(t, "market_update", typ)
	require.Len(t, snap.Leaderboard, 1)
	assert.Equal(t, "bob", snap.Leaderboard[0].Name)
}

func TestMalformedFramesAreIgnored(t *testing.T) {
	ts, stop := startHub(t)
	defer stop()

	conn := dial(t, ts)
	typ, _, _ := readEvent(t, conn)
	require.Equal(t, "init", typ)

	// None of these may kill the connection or the simulation.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "warp_drive"}))
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "trade", "asset": "NOPE", "side": "buy", "qty": 1,
	}))

	// A valid trade afterwards still works.
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "trade", "asset": "B", "side": "sell", "qty": 2,
	}))
	typ, snap, _ := readEvent(t, conn)
	assert.Equal(t, "market_update", typ)
	assert.NotEmpty(t, snap.Leaderboard)
}

func TestCoerceQty(t *testing.T) {
	assert.Equal(t, 5.0, coerceQty(float64(5)))
	assert.Equal(t, 3.0, coerceQty("3"))
	assert.Equal(t, 0.0, coerceQty("lots"))
	assert.Equal(t, 0.0, coerceQty(nil))
	assert.Equal(t, 0.0, coerceQty(map[string]any{}))
}
