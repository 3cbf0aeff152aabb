package sidecar

import (
	"sync/atomic"
	"time"
)

// Tracker records the last time any proxied stream moved bytes.
type Tracker struct {
	lastActivity atomic.Int64
	now          func() time.Time
}

// NewTracker creates a Tracker marked active at creation time.
func NewTracker() *Tracker {
	t := &Tracker{now: time.Now}
	t.Touch()
	return t
}

// Touch updates the last activity timestamp to now.
func (t *Tracker) Touch() {
	t.lastActivity.Store(t.now().Unix())
}

// LastActivity returns the unix timestamp of the most recent activity.
func (t *Tracker) LastActivity() int64 {
	return t.lastActivity.Load()
}

// IdleSeconds returns how long the proxy has been without traffic.
func (t *Tracker) IdleSeconds() int64 {
	idle := t.now().Unix() - t.LastActivity()
	if idle < 0 {
		return 0
	}
	return idle
}
