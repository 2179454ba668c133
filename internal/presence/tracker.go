// Package presence tracks user liveness and typing state in memory.
//
// Liveness is derived, not stored: a user is online iff their most recent
// heartbeat is younger than the configured window. Nothing transitions a
// user to offline; the clock does.
package presence

import (
	"sync"
	"time"

	"quad/internal/models"
)

type record struct {
	lastSeen time.Time
	typing   bool
	// set once a sweep has announced this record as offline, so repeated
	// sweeps stay quiet until a fresh heartbeat arrives
	offlineNotified bool
}

// Listener receives presence statuses when an observable state changes.
type Listener func(models.PresenceStatus)

// Tracker is the in-memory presence store. All methods are safe for
// concurrent use.
type Tracker struct {
	window time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	records map[uint]record

	listenerMu sync.RWMutex
	listeners  []Listener
}

// NewTracker returns a Tracker with the given liveness window. A nil clock
// falls back to time.Now; tests inject a fake one.
func NewTracker(window time.Duration, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		window:  window,
		now:     now,
		records: make(map[uint]record),
	}
}

// Subscribe registers a listener invoked whenever a user's observable
// status changes. Listeners run synchronously on the recording goroutine
// and must not block.
func (t *Tracker) Subscribe(fn Listener) {
	t.listenerMu.Lock()
	t.listeners = append(t.listeners, fn)
	t.listenerMu.Unlock()
}

// Record stores a heartbeat for the user at the given instant. A stale
// timestamp older than the one already recorded is ignored so out-of-order
// pub/sub delivery cannot move a user backwards.
func (t *Tracker) Record(userID uint, at time.Time, typing bool) {
	t.mu.Lock()
	prev, existed := t.records[userID]
	if existed && at.Before(prev.lastSeen) {
		t.mu.Unlock()
		return
	}
	cur := record{lastSeen: at, typing: typing}
	t.records[userID] = cur

	wasLive := existed && t.live(prev)
	nowLive := t.live(cur)
	changed := !existed ||
		wasLive != nowLive ||
		(nowLive && prev.typing != typing)
	status := t.buildStatus(userID, cur)
	t.mu.Unlock()

	if changed {
		t.notify(status)
	}
}

// live reports whether the record is inside the window. The boundary is
// exclusive: a heartbeat exactly window old counts as offline.
func (t *Tracker) live(r record) bool {
	return t.now().Sub(r.lastSeen) < t.window
}

func (t *Tracker) buildStatus(userID uint, r record) models.PresenceStatus {
	online := t.live(r)
	return models.PresenceStatus{
		UserID: userID,
		Online: online,
		// Typing never shows for an offline user regardless of what the
		// last heartbeat claimed.
		Typing: online && r.typing,
	}
}

func (t *Tracker) notify(status models.PresenceStatus) {
	t.listenerMu.RLock()
	listeners := t.listeners
	t.listenerMu.RUnlock()
	for _, fn := range listeners {
		fn(status)
	}
}

// Status returns the derived status for one user. Unknown users are
// offline.
func (t *Tracker) Status(userID uint) models.PresenceStatus {
	t.mu.RLock()
	r, ok := t.records[userID]
	t.mu.RUnlock()
	if !ok {
		return models.PresenceStatus{UserID: userID}
	}
	return t.buildStatus(userID, r)
}

// IsOnline reports whether the user has a heartbeat inside the window.
func (t *Tracker) IsOnline(userID uint) bool {
	return t.Status(userID).Online
}

// IsTyping reports whether the user is online and typing.
func (t *Tracker) IsTyping(userID uint) bool {
	return t.Status(userID).Typing
}

// Snapshot returns derived statuses for the requested users, in the order
// they were asked for.
func (t *Tracker) Snapshot(userIDs []uint) []models.PresenceStatus {
	statuses := make([]models.PresenceStatus, 0, len(userIDs))
	for _, id := range userIDs {
		statuses = append(statuses, t.Status(id))
	}
	return statuses
}

// LastSeen returns the recorded heartbeat instant for a user, if any.
func (t *Tracker) LastSeen(userID uint) (time.Time, bool) {
	t.mu.RLock()
	r, ok := t.records[userID]
	t.mu.RUnlock()
	return r.lastSeen, ok
}

// SweepExpired notifies listeners for users whose window elapsed since the
// last sweep and drops records old enough that nobody asks about them
// anymore. Liveness itself never depends on sweeping.
func (t *Tracker) SweepExpired() []models.PresenceStatus {
	now := t.now()
	var expired []models.PresenceStatus

	t.mu.Lock()
	for id, r := range t.records {
		age := now.Sub(r.lastSeen)
		if age < t.window {
			continue
		}
		if age >= 2*t.window {
			delete(t.records, id)
			continue
		}
		if !r.offlineNotified {
			r.offlineNotified = true
			t.records[id] = r
			expired = append(expired, models.PresenceStatus{UserID: id})
		}
	}
	t.mu.Unlock()

	for _, status := range expired {
		t.notify(status)
	}
	return expired
}
