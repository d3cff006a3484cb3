// Package session ties one authenticated player's pipeline together: the
// location sampler feeding the debounced store writer and the zone
// membership tracker, and the presence subscription feeding the
// reconciler. Everything a session owns dies with Stop.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zonehunt/zonehunt-server/internal/auth"
	"github.com/zonehunt/zonehunt-server/internal/game"
	"github.com/zonehunt/zonehunt-server/internal/geo"
	"github.com/zonehunt/zonehunt-server/internal/metrics"
	"github.com/zonehunt/zonehunt-server/internal/presence"
	"github.com/zonehunt/zonehunt-server/internal/sensor"
	"github.com/zonehunt/zonehunt-server/internal/store"
	"github.com/zonehunt/zonehunt-server/internal/track"
	"github.com/zonehunt/zonehunt-server/internal/zone"
)

const stopWriteTimeout = 5 * time.Second

// Config bundles the per-session tuning knobs. Zero values fall back to
// each component's default.
type Config struct {
	Sensor            sensor.Config
	DebounceWindow    time.Duration
	RecomputeInterval time.Duration
	Cooldown          time.Duration
	DismissAfter      time.Duration
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		Sensor:            sensor.DefaultConfig(),
		DebounceWindow:    track.DefaultDebounceWindow,
		RecomputeInterval: track.DefaultRecomputeInterval,
		Cooldown:          presence.DefaultCooldown,
		DismissAfter:      presence.DefaultDismissAfter,
	}
}

// Engine runs one player's session. Callbacks must be set before Start
// and are invoked from internal goroutines.
type Engine struct {
	identity auth.Identity
	st       store.Store
	registry *zone.Registry
	realSrc  sensor.Source
	cfg      Config
	mc       *metrics.Collector

	// OnPresence receives the reconciled player set after every applied
	// snapshot. OnNotice and OnNoticeDismiss mirror the notifier.
	// OnLocationError receives the sampler errors worth showing.
	OnPresence      func(players map[string]*game.Player)
	OnNotice        func(n presence.Notice)
	OnNoticeDismiss func(noticeID string)
	OnLocationError func(err error)

	mu        sync.Mutex
	ctx       context.Context
	sampler   *sensor.Sampler
	sim       *sensor.SimulatedSource
	debouncer *track.Debouncer
	tracker   *track.MembershipTracker
	recon     *presence.Reconciler
	notifier  *presence.Notifier
	cancelSub func()
	lastPos   *geo.Position
	started   bool
	stopped   bool
}

// NewEngine creates a session engine for the given identity. src is the
// real location source; simulator mode swaps it out per session.
func NewEngine(id auth.Identity, st store.Store, registry *zone.Registry, src sensor.Source, cfg Config, mc *metrics.Collector) *Engine {
	return &Engine{
		identity: id,
		st:       st,
		registry: registry,
		realSrc:  src,
		cfg:      cfg,
		mc:       mc,
	}
}

// Identity returns the session owner's verified identity.
func (e *Engine) Identity() auth.Identity {
	return e.identity
}

// Config returns the tuning the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Start subscribes to presence and begins sampling. ctx scopes the
// session's store operations.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errors.New("session already started")
	}
	if e.stopped {
		return errors.New("session already stopped")
	}

	gate := presence.NewCooldownGate(e.cfg.Cooldown)
	e.notifier = presence.NewNotifier(gate, e.cfg.DismissAfter, e.mc)
	e.notifier.OnNotify = func(n presence.Notice) {
		if e.OnNotice != nil {
			e.OnNotice(n)
		}
	}
	e.notifier.OnDismiss = func(id string) {
		if e.OnNoticeDismiss != nil {
			e.OnNoticeDismiss(id)
		}
	}

	e.recon = presence.NewReconciler(e.identity.PlayerID, e.notifier, e.mc)
	e.recon.OnChange = func(players map[string]*game.Player) {
		if e.OnPresence != nil {
			e.OnPresence(players)
		}
	}

	trackID := track.Identity{
		PlayerID:    e.identity.PlayerID,
		DisplayName: e.identity.DisplayName,
		PhotoURL:    e.identity.PhotoURL,
	}
	e.debouncer = track.NewDebouncer(e.st, trackID, e.cfg.DebounceWindow, e.mc)
	e.tracker = track.NewMembershipTracker(e.st, trackID, e.cfg.RecomputeInterval, e.mc)

	ch, cancel, err := e.st.Subscribe(ctx, "players")
	if err != nil {
		return err
	}
	e.cancelSub = cancel
	go func() {
		for raw := range ch {
			e.recon.Apply(raw)
		}
	}()

	e.ctx = ctx
	e.started = true
	e.startSamplerLocked(e.realSrc)

	slog.Info("session started", "player", e.identity.PlayerID)
	return nil
}

func (e *Engine) startSamplerLocked(src sensor.Source) {
	if e.sampler != nil {
		e.sampler.Stop()
	}
	s := sensor.NewSampler(src, e.cfg.Sensor)
	s.OnPosition = e.handleSample
	s.OnError = func(err error) {
		slog.Warn("location error surfaced", "player", e.identity.PlayerID, "err", err)
		e.mc.SensorError(sensor.KindOf(err).String())
		if e.OnLocationError != nil {
			e.OnLocationError(err)
		}
	}
	e.sampler = s
	s.Start()
}

func (e *Engine) handleSample(p geo.Position) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	pos := p
	e.lastPos = &pos
	ctx := e.ctx
	debouncer, tracker := e.debouncer, e.tracker
	e.mu.Unlock()

	if e.mc != nil {
		e.mc.Sample()
	}
	debouncer.Submit(p)
	tracker.Recompute(ctx, &pos, e.registry.Zones())
}

// ZonesChanged recomputes zone membership against the new zone set using
// the last known position. Called by the hub when the zone registry
// changes.
func (e *Engine) ZonesChanged(zones []*zone.Zone) {
	e.mu.Lock()
	if e.stopped || !e.started {
		e.mu.Unlock()
		return
	}
	ctx, pos, tracker := e.ctx, e.lastPos, e.tracker
	e.mu.Unlock()

	tracker.Recompute(ctx, pos, zones)
}

// UseSimulator toggles simulator mode. Enabling swaps the sampler onto a
// fresh simulated source seeded with the last known position; disabling
// returns to the real sensor.
func (e *Engine) UseSimulator(enable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped || !e.started {
		return
	}
	if enable == (e.sim != nil) {
		return
	}

	if enable {
		e.sim = sensor.NewSimulatedSource()
		if e.lastPos != nil {
			e.sim.Set(*e.lastPos)
		}
		e.startSamplerLocked(e.sim)
		slog.Info("simulator enabled", "player", e.identity.PlayerID)
		return
	}

	e.sim = nil
	e.startSamplerLocked(e.realSrc)
	slog.Info("simulator disabled", "player", e.identity.PlayerID)
}

// Simulating reports whether the session is on the simulated source.
func (e *Engine) Simulating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim != nil
}

// SimulatorSet teleports the simulated player. Fails when simulator mode
// is off.
func (e *Engine) SimulatorSet(p geo.Position) error {
	e.mu.Lock()
	sim := e.sim
	e.mu.Unlock()
	if sim == nil {
		return errors.New("simulator is not enabled")
	}
	if !p.Valid() {
		return errors.New("invalid position")
	}
	sim.Set(p)
	return nil
}

// SimulatorMove steps the simulated player one step in a compass
// direction and returns the new position.
func (e *Engine) SimulatorMove(direction string) (geo.Position, error) {
	e.mu.Lock()
	sim := e.sim
	e.mu.Unlock()
	if sim == nil {
		return geo.Position{}, errors.New("simulator is not enabled")
	}
	switch direction {
	case "north", "south", "east", "west":
	default:
		return geo.Position{}, errors.New("unknown direction")
	}
	return sim.Move(direction), nil
}

// SetRole changes a player's role. Players may change their own role;
// changing someone else's requires an admin identity.
func (e *Engine) SetRole(ctx context.Context, targetID string, role game.Role) error {
	if targetID == "" {
		targetID = e.identity.PlayerID
	}
	if targetID != e.identity.PlayerID && !e.identity.Admin {
		return errors.New("only admins may change another player's role")
	}

	p := track.LoadPlayer(ctx, e.st, targetID)
	p.Role = role
	p.RoleUpdatedAt = time.Now().UnixMilli()
	if err := e.st.Write(ctx, "players/"+targetID, p); err != nil {
		if e.mc != nil {
			e.mc.Write(false)
		}
		return err
	}
	if e.mc != nil {
		e.mc.Write(true)
	}
	return nil
}

// Dismiss manually dismisses a visible notification.
func (e *Engine) Dismiss(noticeID string) {
	e.mu.Lock()
	n := e.notifier
	e.mu.Unlock()
	if n != nil {
		n.Dismiss(noticeID)
	}
}

// Presence returns the current reconciled player set.
func (e *Engine) Presence() map[string]*game.Player {
	e.mu.Lock()
	r := e.recon
	e.mu.Unlock()
	if r == nil {
		return map[string]*game.Player{}
	}
	return r.Snapshot()
}

// Stop tears the session down: the sampler, pending debounce timers and
// notification timers are cancelled so nothing writes after logout, the
// presence subscription ends, and the player's record is removed.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	sampler, debouncer, notifier, cancel := e.sampler, e.debouncer, e.notifier, e.cancelSub
	e.mu.Unlock()

	if sampler != nil {
		sampler.Stop()
	}
	if debouncer != nil {
		debouncer.Stop()
	}
	if notifier != nil {
		notifier.Stop()
	}
	if cancel != nil {
		cancel()
	}

	ctx, done := context.WithTimeout(context.Background(), stopWriteTimeout)
	defer done()
	if err := e.st.Delete(ctx, "players/"+e.identity.PlayerID); err != nil {
		slog.Warn("failed to remove player record", "player", e.identity.PlayerID, "err", err)
	}

	slog.Info("session stopped", "player", e.identity.PlayerID)
}
