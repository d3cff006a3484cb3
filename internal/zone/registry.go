package zone

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zonehunt/zonehunt-server/internal/store"
)

// Registry mirrors the store's zones collection into memory. It is the
// single reader of zone state for the engine: callers get a read-only
// snapshot and may subscribe to changes, and all writes go through the
// narrow Create/Delete functions.
type Registry struct {
	st  store.Store
	now func() time.Time

	// OnChange receives the zone set after each applied snapshot.
	OnChange func(zones []*Zone)

	mu     sync.RWMutex
	zones  map[string]*Zone
	cancel func()
}

// NewRegistry creates a registry over st. Call Start to begin mirroring.
func NewRegistry(st store.Store) *Registry {
	return &Registry{st: st, now: time.Now, zones: make(map[string]*Zone)}
}

// Start subscribes to the zones collection and keeps the mirror current
// until Stop.
func (r *Registry) Start(ctx context.Context) error {
	ch, cancel, err := r.st.Subscribe(ctx, "zones")
	if err != nil {
		return fmt.Errorf("subscribe zones: %w", err)
	}

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		for snap := range ch {
			r.apply(snap)
		}
	}()
	return nil
}

// Stop ends the store subscription.
func (r *Registry) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
}

// Zones returns the current zone set, ordered by creation time then ID
// for stable iteration.
func (r *Registry) Zones() []*Zone {
	r.mu.RLock()
	out := make([]*Zone, 0, len(r.zones))
	for _, z := range r.zones {
		out = append(out, z)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of known zones.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.zones)
}

// Create validates z, stamps identity and creation time, and writes it.
// Any authenticated player may create zones.
func (r *Registry) Create(ctx context.Context, z *Zone, createdBy string) (string, error) {
	if err := z.Validate(); err != nil {
		return "", err
	}
	z.ID = uuid.New().String()
	z.CreatedBy = createdBy
	z.CreatedAt = r.now().UnixMilli()

	if err := r.st.Write(ctx, "zones/"+z.ID, z); err != nil {
		return "", fmt.Errorf("write zone: %w", err)
	}
	return z.ID, nil
}

// Delete removes a zone by ID. No ownership check is enforced; deletion
// is open to any authenticated player.
func (r *Registry) Delete(ctx context.Context, id string) error {
	return r.st.Delete(ctx, "zones/"+id)
}

func (r *Registry) apply(raw json.RawMessage) {
	next := make(map[string]*Zone)

	if len(raw) > 0 {
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			slog.Warn("zones snapshot unreadable, keeping previous set", "error", err)
			return
		}
		for id, entry := range entries {
			z := &Zone{}
			if err := json.Unmarshal(entry, z); err != nil {
				slog.Warn("dropping unreadable zone record", "zone", id, "error", err)
				continue
			}
			z.ID = id
			if err := z.Validate(); err != nil {
				slog.Warn("dropping invalid zone record", "zone", id, "error", err)
				continue
			}
			next[id] = z
		}
	}

	r.mu.Lock()
	r.zones = next
	r.mu.Unlock()

	if r.OnChange != nil {
		r.OnChange(r.Zones())
	}
}
