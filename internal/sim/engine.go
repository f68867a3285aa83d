// Package sim implements the authoritative market simulation: asset prices,
// participant portfolios, the drift cycle, trade execution, valuation, and the
// leaderboard. All state is owned by a single goroutine that consumes commands
// from an inbox channel, so a mutation and its resulting revaluation, rerank,
// and broadcast form one atomic unit without locking.
package sim

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/pitsim/pitsim/internal/domain"
	"github.com/pitsim/pitsim/internal/observability"
)

// AssetDef seeds one asset at engine start.
type AssetDef struct {
	ID    domain.AssetID
	Price float64
}

// Settings are the tunable simulation parameters. Zero values are replaced by
// the defaults below in New.
type Settings struct {
	// TickInterval is the drift cycle period.
	TickInterval time.Duration
	// DriftRange is the maximum absolute per-tick price perturbation.
	DriftRange float64
	// PriceFloor is the strictly positive clamp applied after every price
	// mutation.
	PriceFloor float64
	// ImpactPerUnit scales the multiplicative price impact of a trade:
	// a trade of quantity q moves the price by q*ImpactPerUnit.
	ImpactPerUnit float64
	// LeaderboardSize bounds the ranked leaderboard.
	LeaderboardSize int
	// MaxNameLen bounds participant display names, in runes.
	MaxNameLen int
	// DefaultName is used when a participant has not set a name or sets an
	// empty one.
	DefaultName string
	// Seed seeds the drift RNG. Zero means seed from the wall clock.
	Seed int64
	// Assets is the fixed tradable set with initial prices.
	Assets []AssetDef
}

const (
	defaultTickInterval    = time.Second
	defaultDriftRange      = 0.04
	defaultPriceFloor      = 0.01
	defaultImpactPerUnit   = 0.002
	defaultLeaderboardSize = 10
	defaultMaxNameLen      = 24
	defaultName            = "anonymous"
)

// DefaultAssets is the stock market of the demo: three instruments.
var DefaultAssets = []AssetDef{
	{ID: "A", Price: 100},
	{ID: "B", Price: 50},
	{ID: "C", Price: 25},
}

// Engine owns the entire simulation state. It must be driven by exactly one
// call to Run; the exported methods are safe to call from any goroutine and
// merely enqueue commands.
type Engine struct {
	settings Settings
	inbox    chan command
	rng      *rand.Rand

	tick         uint64
	assets       []*domain.Asset // fixed order, for deterministic drift
	assetIdx     map[domain.AssetID]*domain.Asset
	participants map[string]*domain.Participant
	leaderboard  []domain.LeaderboardEntry

	broadcaster domain.Broadcaster
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// command is a unit of work for the engine loop. Exactly one goroutine
// dispatches commands, which is what makes mutations atomic.
type command interface{}

type joinCmd struct {
	id    string
	reply chan domain.Snapshot
}

type leaveCmd struct {
	id string
}

type setNameCmd struct {
	id   string
	name string
}

type tradeCmd struct {
	id    string
	asset domain.AssetID
	side  domain.Side
	qty   int64
}

type snapshotCmd struct {
	reply chan domain.Snapshot
}

// New creates an Engine from the given settings. The broadcaster is attached
// separately with SetBroadcaster because the transport hub needs the engine
// first; metrics may be nil.
func New(settings Settings, metrics *observability.Metrics, logger *slog.Logger) *Engine {
	if settings.TickInterval <= 0 {
		settings.TickInterval = defaultTickInterval
	}
	if settings.DriftRange <= 0 {
		settings.DriftRange = defaultDriftRange
	}
	if settings.PriceFloor <= 0 {
		settings.PriceFloor = defaultPriceFloor
	}
	if settings.ImpactPerUnit <= 0 {
		settings.ImpactPerUnit = defaultImpactPerUnit
	}
	if settings.LeaderboardSize <= 0 {
		settings.LeaderboardSize = defaultLeaderboardSize
	}
	if settings.MaxNameLen <= 0 {
		settings.MaxNameLen = defaultMaxNameLen
	}
	if settings.DefaultName == "" {
		settings.DefaultName = defaultName
	}
	if len(settings.Assets) == 0 {
		settings.Assets = DefaultAssets
	}

	seed := settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		settings:     settings,
		inbox:        make(chan command, 256),
		rng:          rand.New(rand.NewSource(seed)),
		assetIdx:     make(map[domain.AssetID]*domain.Asset, len(settings.Assets)),
		participants: make(map[string]*domain.Participant),
		metrics:      metrics,
		logger:       logger.With(slog.String("component", "sim")),
	}

	now := time.Now().UTC()
	for _, def := range settings.Assets {
		a := &domain.Asset{
			ID:        def.ID,
			Price:     clampPrice(def.Price, settings.PriceFloor),
			UpdatedAt: now,
		}
		e.assets = append(e.assets, a)
		e.assetIdx[a.ID] = a
	}

	return e
}

// SetBroadcaster attaches the snapshot sink. Must be called before Run.
func (e *Engine) SetBroadcaster(b domain.Broadcaster) {
	e.broadcaster = b
}

// Run starts the engine loop: the drift ticker and the command inbox are
// multiplexed onto this single goroutine, first-come-first-served. It blocks
// until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.InfoContext(ctx, "engine started",
		slog.Int("assets", len(e.assets)),
		slog.Duration("tick_interval", e.settings.TickInterval),
	)

	ticker := time.NewTicker(e.settings.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping", slog.Uint64("tick", e.tick))
			return ctx.Err()
		case <-ticker.C:
			e.applyDrift()
		case cmd := <-e.inbox:
			e.dispatch(cmd)
		}
	}
}

func (e *Engine) dispatch(cmd command) {
	switch c := cmd.(type) {
	case joinCmd:
		e.handleJoin(c)
	case leaveCmd:
		e.handleLeave(c)
	case setNameCmd:
		e.handleSetName(c)
	case tradeCmd:
		e.handleTrade(c)
	case snapshotCmd:
		c.reply <- e.buildSnapshot()
	default:
		e.logger.Warn("unknown command", slog.Any("command", cmd))
	}
}

// ---------------------------------------------------------------------------
// Command surface (implements domain.Simulator). These run on the caller's
// goroutine and only enqueue; the engine loop does the work.
// ---------------------------------------------------------------------------

// Join registers the identity and returns the snapshot the connection should
// be initialized with, before it observes any broadcast.
func (e *Engine) Join(ctx context.Context, id string) (domain.Snapshot, error) {
	reply := make(chan domain.Snapshot, 1)
	select {
	case e.inbox <- joinCmd{id: id, reply: reply}:
	case <-ctx.Done():
		return domain.Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return domain.Snapshot{}, ctx.Err()
	}
}

// Leave removes the participant. A leaderboard computed just before removal
// may still carry the entry; that is a point-in-time view, not an error.
func (e *Engine) Leave(id string) {
	e.inbox <- leaveCmd{id: id}
}

// SetName sets the participant's display name, truncated to the configured
// length, falling back to the default placeholder when empty.
func (e *Engine) SetName(id, name string) {
	e.inbox <- setNameCmd{id: id, name: name}
}

// Trade applies a buy or sell order. The quantity is coerced to a positive
// integer with a floor of 1; an unknown asset or side makes the whole command
// a no-op inside the loop.
func (e *Engine) Trade(id, asset, side string, qty float64) {
	e.inbox <- tradeCmd{
		id:    id,
		asset: domain.AssetID(asset),
		side:  domain.Side(strings.ToLower(strings.TrimSpace(side))),
		qty:   sanitizeQuantity(qty),
	}
}

// Snapshot returns a copy of the current state, serialized through the command
// queue so it can never observe a half-applied mutation.
func (e *Engine) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	reply := make(chan domain.Snapshot, 1)
	select {
	case e.inbox <- snapshotCmd{reply: reply}:
	case <-ctx.Done():
		return domain.Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return domain.Snapshot{}, ctx.Err()
	}
}

// ---------------------------------------------------------------------------
// State store. Only the engine goroutine touches these.
// ---------------------------------------------------------------------------

// getOrCreateParticipant returns the existing entry or inserts a fresh one
// with zero cash, empty positions, and the default name. Never fails.
func (e *Engine) getOrCreateParticipant(id string) *domain.Participant {
	if p, ok := e.participants[id]; ok {
		return p
	}
	p := &domain.Participant{
		ID:        id,
		Name:      e.settings.DefaultName,
		Positions: make(map[domain.AssetID]int64),
	}
	e.participants[id] = p
	if e.metrics != nil {
		e.metrics.Participants.Set(float64(len(e.participants)))
	}
	return p
}

func (e *Engine) handleJoin(c joinCmd) {
	e.getOrCreateParticipant(c.id)
	e.updateLeaderboard()
	c.reply <- e.buildSnapshot()
	e.logger.Info("participant joined",
		slog.String("participant", c.id),
		slog.Int("total", len(e.participants)),
	)
}

func (e *Engine) handleLeave(c leaveCmd) {
	if _, ok := e.participants[c.id]; !ok {
		return
	}
	delete(e.participants, c.id)
	e.updateLeaderboard()
	if e.metrics != nil {
		e.metrics.Participants.Set(float64(len(e.participants)))
	}
	e.logger.Info("participant left",
		slog.String("participant", c.id),
		slog.Int("total", len(e.participants)),
	)
}

func (e *Engine) handleSetName(c setNameCmd) {
	p := e.getOrCreateParticipant(c.id)
	p.Name = sanitizeName(c.name, e.settings.MaxNameLen, e.settings.DefaultName)
	e.markToMarket(p)
	e.updateLeaderboard()
	e.broadcast()
}

// sanitizeName trims, truncates to maxLen runes, and falls back to the
// placeholder when the result is empty. Coercion, never rejection.
func sanitizeName(name string, maxLen int, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	runes := []rune(name)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return name
}

// broadcast hands the current snapshot to the attached broadcaster. Every
// mutation path ends here, so no client is ever shown a leaderboard stale
// relative to the prices it was given.
func (e *Engine) broadcast() {
	if e.broadcaster == nil {
		return
	}
	e.broadcaster.Broadcast(e.buildSnapshot())
	if e.metrics != nil {
		e.metrics.BroadcastsTotal.Inc()
	}
}

func clampPrice(p, floor float64) float64 {
	if p < floor {
		return floor
	}
	return p
}
