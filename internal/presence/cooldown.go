package presence

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zonehunt/zonehunt-server/internal/metrics"
)

// DefaultCooldown is the minimum interval between repeated outside-zone
// notifications for the same subject.
const DefaultCooldown = 30 * time.Second

// DefaultDismissAfter is how long an accepted notification stays up
// before auto-dismissal.
const DefaultDismissAfter = 5 * time.Second

// CooldownGate rate-limits notifications per subject. State is instance
// scoped and bound to the session lifecycle: cleared when the session
// ends, never shared between sessions.
type CooldownGate struct {
	cooldown time.Duration
	now      func() time.Time

	mu           sync.Mutex
	lastNotified map[string]time.Time
}

// NewCooldownGate creates a gate with the given cooldown window.
func NewCooldownGate(cooldown time.Duration) *CooldownGate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &CooldownGate{
		cooldown:     cooldown,
		now:          time.Now,
		lastNotified: make(map[string]time.Time),
	}
}

// ShouldNotify reports whether a notification for subjectID may go out.
// An accepted call records the attempt; a suppressed call leaves the
// stored timestamp untouched, so the cooldown never slides.
func (g *CooldownGate) ShouldNotify(subjectID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.lastNotified[subjectID]; ok && now.Sub(last) < g.cooldown {
		return false
	}
	g.lastNotified[subjectID] = now
	return true
}

// Clear drops all cooldown state. Called when the session ends.
func (g *CooldownGate) Clear() {
	g.mu.Lock()
	g.lastNotified = make(map[string]time.Time)
	g.mu.Unlock()
}

// Notice is one surfaced outside-zone notification.
type Notice struct {
	ID       string `json:"id"`
	PlayerID string `json:"playerId"`
	Message  string `json:"message"`
}

// Notifier gates notices through a CooldownGate and auto-dismisses each
// accepted one after a fixed delay. Manual dismissal cancels the timer.
type Notifier struct {
	gate         *CooldownGate
	dismissAfter time.Duration
	mc           *metrics.Collector

	// OnNotify receives each accepted notice; OnDismiss its dismissal.
	OnNotify  func(Notice)
	OnDismiss func(noticeID string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewNotifier creates a notifier over gate.
func NewNotifier(gate *CooldownGate, dismissAfter time.Duration, mc *metrics.Collector) *Notifier {
	if dismissAfter <= 0 {
		dismissAfter = DefaultDismissAfter
	}
	return &Notifier{
		gate:         gate,
		dismissAfter: dismissAfter,
		mc:           mc,
		timers:       make(map[string]*time.Timer),
	}
}

// Notify surfaces an outside-zone notice for playerID unless the subject
// is still cooling down. Reports whether the notice went out.
func (n *Notifier) Notify(playerID, message string) bool {
	if !n.gate.ShouldNotify(playerID) {
		n.mc.Notification(false)
		return false
	}
	n.mc.Notification(true)

	notice := Notice{ID: uuid.New().String(), PlayerID: playerID, Message: message}
	if n.OnNotify != nil {
		n.OnNotify(notice)
	}

	n.mu.Lock()
	n.timers[notice.ID] = time.AfterFunc(n.dismissAfter, func() {
		n.Dismiss(notice.ID)
	})
	n.mu.Unlock()
	return true
}

// Dismiss removes a notice, cancelling its auto-dismiss timer. Safe to
// call for already-dismissed notices.
func (n *Notifier) Dismiss(noticeID string) {
	n.mu.Lock()
	timer, ok := n.timers[noticeID]
	if ok {
		timer.Stop()
		delete(n.timers, noticeID)
	}
	n.mu.Unlock()

	if ok && n.OnDismiss != nil {
		n.OnDismiss(noticeID)
	}
}

// Stop cancels every pending dismissal timer and clears the gate.
func (n *Notifier) Stop() {
	n.mu.Lock()
	for id, timer := range n.timers {
		timer.Stop()
		delete(n.timers, id)
	}
	n.mu.Unlock()
	n.gate.Clear()
}
