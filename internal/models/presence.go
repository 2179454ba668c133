package models

import "time"

// PresenceUpdate is the heartbeat message exchanged between processes and
// pushed to subscribed UI clients.
type PresenceUpdate struct {
	UserID    uint      `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Typing    bool      `json:"typing"`
}

// PresenceStatus is the derived view answered to presence queries. Online
// is always recomputed from the latest heartbeat, never stored.
type PresenceStatus struct {
	UserID uint `json:"user_id"`
	Online bool `json:"online"`
	Typing bool `json:"typing"`
}
