package lobby

import (
	"sync"
	"time"
)

// IdleTimer is a single-shot, re-armable timer bound to a lobby's
// identity. On fire, the callback is expected to re-enter the lobby's
// command loop before touching state, and to exit silently if the lobby
// is already gone — here, that upgrade is simply calling back into
// Lobby.exec, which no-ops once the loop has stopped.
type IdleTimer struct {
	mu    sync.Mutex
	timer *time.Timer
}

// Arm schedules fire to run after d, replacing any previously scheduled
// fire (re-arming is expected: every client departure may arm it again).
func (t *IdleTimer) Arm(d time.Duration, fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d, fire)
}

// Cancel disarms the timer. Safe to call when not armed.
func (t *IdleTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
