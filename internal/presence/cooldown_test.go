package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gateAt(clock *time.Time) *CooldownGate {
	g := NewCooldownGate(30 * time.Second)
	g.now = func() time.Time { return *clock }
	return g
}

func TestCooldownGate_SuppressesWithinWindow(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	g := gateAt(&clock)

	assert.True(t, g.ShouldNotify("p1"))

	clock = clock.Add(10 * time.Second)
	assert.False(t, g.ShouldNotify("p1"), "10s apart is inside the 30s cooldown")
}

func TestCooldownGate_AllowsAfterWindow(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	g := gateAt(&clock)

	assert.True(t, g.ShouldNotify("p1"))

	clock = clock.Add(35 * time.Second)
	assert.True(t, g.ShouldNotify("p1"), "35s apart clears the cooldown")
}

func TestCooldownGate_SuppressionDoesNotSlideWindow(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	g := gateAt(&clock)

	require.True(t, g.ShouldNotify("p1"))

	clock = clock.Add(20 * time.Second)
	require.False(t, g.ShouldNotify("p1"))

	// 31s after the accepted notification; if suppression refreshed the
	// stamp this would still be blocked.
	clock = clock.Add(11 * time.Second)
	assert.True(t, g.ShouldNotify("p1"))
}

func TestCooldownGate_SubjectsIndependent(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	g := gateAt(&clock)

	assert.True(t, g.ShouldNotify("p1"))
	assert.True(t, g.ShouldNotify("p2"))
	assert.False(t, g.ShouldNotify("p1"))
}

func TestCooldownGate_Clear(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	g := gateAt(&clock)

	require.True(t, g.ShouldNotify("p1"))
	require.False(t, g.ShouldNotify("p1"))

	g.Clear()
	assert.True(t, g.ShouldNotify("p1"), "cleared state forgets past notifications")
}

type noticeLog struct {
	mu        sync.Mutex
	notices   []Notice
	dismissed []string
}

func (l *noticeLog) notify(n Notice) {
	l.mu.Lock()
	l.notices = append(l.notices, n)
	l.mu.Unlock()
}

func (l *noticeLog) dismiss(id string) {
	l.mu.Lock()
	l.dismissed = append(l.dismissed, id)
	l.mu.Unlock()
}

func (l *noticeLog) noticeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.notices)
}

func (l *noticeLog) dismissCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.dismissed)
}

func TestNotifier_DeliversAndAutoDismisses(t *testing.T) {
	log := &noticeLog{}
	n := NewNotifier(NewCooldownGate(30*time.Second), 10*time.Millisecond, nil)
	n.OnNotify = log.notify
	n.OnDismiss = log.dismiss
	defer n.Stop()

	require.True(t, n.Notify("p1", "⚠️ Ana is outside the game zones!"))
	require.Equal(t, 1, log.noticeCount())
	assert.Equal(t, "p1", log.notices[0].PlayerID)

	require.Eventually(t, func() bool { return log.dismissCount() == 1 },
		time.Second, time.Millisecond, "notice auto-dismisses")
	assert.Equal(t, log.notices[0].ID, log.dismissed[0])
}

func TestNotifier_ManualDismissCancelsTimer(t *testing.T) {
	log := &noticeLog{}
	n := NewNotifier(NewCooldownGate(30*time.Second), 20*time.Millisecond, nil)
	n.OnNotify = log.notify
	n.OnDismiss = log.dismiss
	defer n.Stop()

	require.True(t, n.Notify("p1", "outside"))
	n.Dismiss(log.notices[0].ID)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, log.dismissCount(), "auto-dismiss timer was cancelled")
}

func TestNotifier_SuppressedNoticeNotDelivered(t *testing.T) {
	log := &noticeLog{}
	n := NewNotifier(NewCooldownGate(30*time.Second), time.Second, nil)
	n.OnNotify = log.notify
	defer n.Stop()

	require.True(t, n.Notify("p1", "outside"))
	assert.False(t, n.Notify("p1", "outside again"))
	assert.Equal(t, 1, log.noticeCount())
}

func TestNotifier_StopCancelsPendingDismissals(t *testing.T) {
	log := &noticeLog{}
	n := NewNotifier(NewCooldownGate(30*time.Second), 20*time.Millisecond, nil)
	n.OnNotify = log.notify
	n.OnDismiss = log.dismiss

	require.True(t, n.Notify("p1", "outside"))
	n.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, log.dismissCount(), "no dismissal after Stop")
}
