package presence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonehunt/zonehunt-server/internal/game"
)

func TestReconciler_KeepsValidRecords(t *testing.T) {
	r := NewReconciler("me", nil, nil)

	r.Apply(json.RawMessage(`{
		"p1": {"displayName": "Ana", "position": [42.0, 23.0], "role": "seeker", "timestamp": 1000},
		"p2": {"displayName": "Boris", "position": [42.1, 23.1], "timestamp": 2000}
	}`))

	players := r.Snapshot()
	require.Len(t, players, 2)
	assert.Equal(t, "Ana", players["p1"].DisplayName)
	assert.Equal(t, game.RoleSeeker, players["p1"].Role)
	assert.Equal(t, 42.1, players["p2"].Position.Lat)
}

func TestReconciler_FiltersInvalidRecords(t *testing.T) {
	r := NewReconciler("me", nil, nil)

	r.Apply(json.RawMessage(`{
		"ok":          {"displayName": "Ana", "position": [42.0, 23.0]},
		"no-position": {"displayName": "Ghost"},
		"object-pos":  {"displayName": "Bad", "position": {"lat": 1, "lng": 2}},
		"short-pos":   {"displayName": "Bad", "position": [42.0]},
		"string-pos":  {"displayName": "Bad", "position": ["42", "23"]}
	}`))

	players := r.Snapshot()
	require.Len(t, players, 1, "only the structurally valid record survives")
	assert.Contains(t, players, "ok")
}

func TestReconciler_FullReplace(t *testing.T) {
	r := NewReconciler("me", nil, nil)

	r.Apply(json.RawMessage(`{
		"p1": {"position": [42.0, 23.0]},
		"p2": {"position": [42.1, 23.1]}
	}`))
	require.Equal(t, 2, r.Len())

	r.Apply(json.RawMessage(`{"p1": {"position": [42.0, 23.0]}}`))
	players := r.Snapshot()
	assert.Len(t, players, 1, "snapshots replace, never merge")
	assert.NotContains(t, players, "p2")
}

func TestReconciler_EmptySnapshotClears(t *testing.T) {
	r := NewReconciler("me", nil, nil)

	r.Apply(json.RawMessage(`{"p1": {"position": [42.0, 23.0]}}`))
	r.Apply(nil)
	assert.Equal(t, 0, r.Len())
}

func TestReconciler_Idempotent(t *testing.T) {
	r := NewReconciler("me", nil, nil)
	snap := json.RawMessage(`{
		"p1": {"displayName": "Ana", "position": [42.0, 23.0], "isOutsideZone": true},
		"p2": {"displayName": "Boris", "position": [42.1, 23.1]}
	}`)

	r.Apply(snap)
	first := r.Snapshot()
	r.Apply(snap)
	second := r.Snapshot()

	assert.Equal(t, first, second, "replaying a snapshot changes nothing")
}

func TestReconciler_UnreadableSnapshotKeepsPrevious(t *testing.T) {
	r := NewReconciler("me", nil, nil)

	r.Apply(json.RawMessage(`{"p1": {"position": [42.0, 23.0]}}`))
	r.Apply(json.RawMessage(`[1, 2, 3]`))

	assert.Equal(t, 1, r.Len())
}

func TestReconciler_NotifiesOutsideOtherPlayers(t *testing.T) {
	log := &noticeLog{}
	n := NewNotifier(NewCooldownGate(30*time.Second), time.Second, nil)
	n.OnNotify = log.notify
	defer n.Stop()

	r := NewReconciler("me", n, nil)
	r.Apply(json.RawMessage(`{
		"me":    {"displayName": "Self", "position": [42.0, 23.0], "isOutsideZone": true},
		"other": {"displayName": "Ana",  "position": [42.1, 23.1], "isOutsideZone": true},
		"inside": {"displayName": "Boris", "position": [42.2, 23.2]}
	}`))

	require.Equal(t, 1, log.noticeCount(), "only the outside non-local player notifies")
	assert.Equal(t, "other", log.notices[0].PlayerID)
	assert.Equal(t, "⚠️ Ana is outside the game zones!", log.notices[0].Message)
}

func TestReconciler_RepeatedOutsideSnapshotsCooldown(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	gate := NewCooldownGate(30 * time.Second)
	gate.now = func() time.Time { return clock }

	log := &noticeLog{}
	n := NewNotifier(gate, time.Hour, nil)
	n.OnNotify = log.notify
	defer n.Stop()

	r := NewReconciler("me", n, nil)
	snap := json.RawMessage(`{"other": {"displayName": "Ana", "position": [42.1, 23.1], "isOutsideZone": true}}`)

	r.Apply(snap)
	clock = clock.Add(10 * time.Second)
	r.Apply(snap)
	assert.Equal(t, 1, log.noticeCount(), "second snapshot 10s later is suppressed")

	clock = clock.Add(25 * time.Second)
	r.Apply(snap)
	assert.Equal(t, 2, log.noticeCount(), "35s after the first, the next one delivers")
}

func TestReconciler_OnChangeFires(t *testing.T) {
	r := NewReconciler("me", nil, nil)

	var seen map[string]*game.Player
	r.OnChange = func(players map[string]*game.Player) { seen = players }

	r.Apply(json.RawMessage(`{"p1": {"position": [42.0, 23.0]}}`))
	require.NotNil(t, seen)
	assert.Contains(t, seen, "p1")
}

func TestReconciler_SnapshotIsACopy(t *testing.T) {
	r := NewReconciler("me", nil, nil)
	r.Apply(json.RawMessage(`{"p1": {"displayName": "Ana", "position": [42.0, 23.0]}}`))

	snap := r.Snapshot()
	snap["p1"].DisplayName = "mutated"

	assert.Equal(t, "Ana", r.Player("p1").DisplayName)
}
