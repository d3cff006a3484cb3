package track

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zonehunt/zonehunt-server/internal/geo"
	"github.com/zonehunt/zonehunt-server/internal/metrics"
	"github.com/zonehunt/zonehunt-server/internal/store"
	"github.com/zonehunt/zonehunt-server/internal/zone"
)

// DefaultRecomputeInterval is the minimum spacing between zone membership
// recomputations for one player, keeping write amplification against the
// shared store bounded.
const DefaultRecomputeInterval = 5 * time.Second

// MembershipTracker recomputes a single player's isOutsideZone status.
// The recompute timestamp guard is instance state, scoped to the owning
// session, so sessions never rate-limit each other.
type MembershipTracker struct {
	st          store.Store
	id          Identity
	minInterval time.Duration
	mc          *metrics.Collector
	now         func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewMembershipTracker creates a tracker for id's own record.
func NewMembershipTracker(st store.Store, id Identity, minInterval time.Duration, mc *metrics.Collector) *MembershipTracker {
	if minInterval <= 0 {
		minInterval = DefaultRecomputeInterval
	}
	return &MembershipTracker{st: st, id: id, minInterval: minInterval, mc: mc, now: time.Now}
}

// Recompute re-derives isOutsideZone from the current position and zone
// set and writes the merged record back. It is a no-op when the player
// has no position yet, when no zones exist (an empty zone set gates
// nothing and must never force an outside status), or when the last
// recompute was less than the rate-limit window ago. Returns whether a
// recompute ran and the resulting outside status.
func (t *MembershipTracker) Recompute(ctx context.Context, pos *geo.Position, zones []*zone.Zone) (ran bool, outside bool) {
	if pos == nil || len(zones) == 0 {
		return false, false
	}

	t.mu.Lock()
	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.minInterval {
		t.mu.Unlock()
		return false, false
	}
	t.last = now
	t.mu.Unlock()

	t.mc.Recompute()
	outside = !zone.ContainsAny(*pos, zones)
	nowMS := now.UnixMilli()

	record := LoadPlayer(ctx, t.st, t.id.PlayerID)
	wasOutside := record.IsOutsideZone

	record.DisplayName = t.id.DisplayName
	record.PhotoURL = t.id.PhotoURL
	record.Position = pos
	record.Timestamp = nowMS
	record.IsOutsideZone = outside
	if outside && !wasOutside {
		// Only the inside→outside transition stamps the alert time;
		// staying outside preserves it.
		record.LastOutsideAlert = nowMS
	}

	if err := t.st.Write(ctx, t.id.recordPath(), record); err != nil {
		t.mc.Write(false)
		slog.Error("membership status write failed", "player", t.id.PlayerID, "error", err)
		return true, outside
	}
	t.mc.Write(true)
	return true, outside
}

// Reset clears the rate-limit guard, allowing the next recompute to run
// immediately. Called when a session restarts.
func (t *MembershipTracker) Reset() {
	t.mu.Lock()
	t.last = time.Time{}
	t.mu.Unlock()
}
