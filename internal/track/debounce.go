package track

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/zonehunt/zonehunt-server/internal/game"
	"github.com/zonehunt/zonehunt-server/internal/geo"
	"github.com/zonehunt/zonehunt-server/internal/metrics"
	"github.com/zonehunt/zonehunt-server/internal/store"
)

// DefaultDebounceWindow is the minimum spacing between remote position
// writes.
const DefaultDebounceWindow = time.Second

// Identity is the read-only player identity stamped onto every write.
type Identity struct {
	PlayerID    string
	DisplayName string
	PhotoURL    string
}

func (id Identity) recordPath() string {
	return "players/" + id.PlayerID
}

// Debouncer coalesces bursts of position samples into at most one remote
// write per window, always carrying the most recent position (trailing
// edge). Each flush reads the latest remote record first and merges, so
// a concurrently-set role or metadata field is never erased. Write
// failures are logged and swallowed; the next position update supersedes
// them.
type Debouncer struct {
	st      store.Store
	id      Identity
	window  time.Duration
	mc      *metrics.Collector
	now     func() time.Time

	mu      sync.Mutex
	pending *geo.Position
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer writing id's record through st.
func NewDebouncer(st store.Store, id Identity, window time.Duration, mc *metrics.Collector) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{st: st, id: id, window: window, mc: mc, now: time.Now}
}

// Submit queues a position. The first submission in a window arms the
// flush timer; later ones only replace the pending value.
func (d *Debouncer) Submit(p geo.Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = &p
	if d.timer == nil {
		d.timer = time.AfterFunc(d.window, d.flush)
	}
}

// Stop cancels any pending flush. No write happens after Stop returns.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

// Flush writes the pending position immediately, if any. Used when a
// session ends cleanly and on tests.
func (d *Debouncer) Flush() {
	d.flush()
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.stopped || d.pending == nil {
		d.mu.Unlock()
		return
	}
	pos := *d.pending
	d.pending = nil
	nowMS := d.now().UnixMilli()
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record := LoadPlayer(ctx, d.st, d.id.PlayerID)
	record.DisplayName = d.id.DisplayName
	record.PhotoURL = d.id.PhotoURL
	record.Position = &pos
	record.Timestamp = nowMS

	if err := d.st.Write(ctx, d.id.recordPath(), record); err != nil {
		d.mc.Write(false)
		slog.Error("debounced position write failed", "player", d.id.PlayerID, "error", err)
		return
	}
	d.mc.Write(true)
}

// LoadPlayer reads a player record from the store, returning an empty
// record (default role, no position) when absent or unreadable. Read
// failures are not fatal: the merge then starts from scratch, which is
// the same position a fresh client is in.
func LoadPlayer(ctx context.Context, st store.Store, playerID string) *game.Player {
	record := &game.Player{ID: playerID}
	raw, err := st.Read(ctx, "players/"+playerID)
	if err != nil {
		slog.Warn("player record read failed", "player", playerID, "error", err)
		return record
	}
	if raw == nil {
		return record
	}
	if err := json.Unmarshal(raw, record); err != nil {
		slog.Warn("player record unreadable", "player", playerID, "error", err)
		return &game.Player{ID: playerID}
	}
	return record
}
