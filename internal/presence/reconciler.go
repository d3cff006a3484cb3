package presence

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/zonehunt/zonehunt-server/internal/game"
	"github.com/zonehunt/zonehunt-server/internal/metrics"
)

// Reconciler consumes whole-collection snapshots of the remote players
// set and maintains the authoritative local copy. Every snapshot fully
// replaces the previous set, matching the store's eventually-consistent
// push model, so replays and out-of-order echoes of the session's own
// writes are harmless. Records without a structurally valid position are
// silently excluded, never fatal.
type Reconciler struct {
	localID  string
	notifier *Notifier
	mc       *metrics.Collector

	// OnChange receives the new player set after each applied snapshot.
	OnChange func(players map[string]*game.Player)

	mu      sync.RWMutex
	players map[string]*game.Player
}

// NewReconciler creates a reconciler for the session owned by localID.
// notifier may be nil when the session does not surface notifications.
func NewReconciler(localID string, notifier *Notifier, mc *metrics.Collector) *Reconciler {
	return &Reconciler{
		localID:  localID,
		notifier: notifier,
		mc:       mc,
		players:  make(map[string]*game.Player),
	}
}

// Apply ingests one snapshot of the entire players collection. A nil
// snapshot means the collection is empty.
func (r *Reconciler) Apply(raw json.RawMessage) {
	next := make(map[string]*game.Player)

	if len(raw) > 0 {
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			slog.Warn("presence snapshot unreadable, keeping previous set", "error", err)
			return
		}
		for id, entry := range entries {
			p := &game.Player{ID: id}
			if err := json.Unmarshal(entry, p); err != nil || p.Position == nil {
				r.mc.InvalidRecord()
				continue
			}
			next[id] = p
		}
	}

	r.mu.Lock()
	r.players = next
	r.mu.Unlock()
	r.mc.Players(len(next))

	if r.notifier != nil {
		for id, p := range next {
			if p.IsOutsideZone && id != r.localID {
				name := p.DisplayName
				if name == "" {
					name = "A player"
				}
				r.notifier.Notify(id, "⚠️ "+name+" is outside the game zones!")
			}
		}
	}

	if r.OnChange != nil {
		r.OnChange(r.Snapshot())
	}
}

// Snapshot returns a copy of the current player set.
func (r *Reconciler) Snapshot() map[string]*game.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*game.Player, len(r.players))
	for id, p := range r.players {
		out[id] = p.Clone()
	}
	return out
}

// Player returns the current record for one player, or nil.
func (r *Reconciler) Player(id string) *game.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.players[id]; ok {
		return p.Clone()
	}
	return nil
}

// Len returns the size of the current player set.
func (r *Reconciler) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
