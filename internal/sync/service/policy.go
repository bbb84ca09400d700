package service

import "time"

const (
	// loginGracePeriod suppresses "synced" feedback right after login.
	loginGracePeriod = 30 * time.Second

	// minNotifyInterval rate-limits success notifications.
	minNotifyInterval = 10 * time.Minute
)

// Policy decides whether a successful sync may notify the user. It only
// gates the OnSuccess callbacks, never the sync itself, and it never
// applies to errors.
type Policy struct {
	// Disabled turns off success notifications for the whole session.
	Disabled bool

	// LoginAt is when the user authenticated. Within loginGracePeriod of
	// it, notifications are suppressed.
	LoginAt time.Time

	lastNotified time.Time
}

// NewPolicy returns a policy with notifications enabled.
func NewPolicy() *Policy {
	return &Policy{}
}

// Allow reports whether a success notification may fire at the given time.
func (p *Policy) Allow(now time.Time) bool {
	if p == nil {
		return true
	}
	if p.Disabled {
		return false
	}
	if !p.LoginAt.IsZero() && now.Sub(p.LoginAt) < loginGracePeriod {
		return false
	}
	if !p.lastNotified.IsZero() && now.Sub(p.lastNotified) < minNotifyInterval {
		return false
	}
	return true
}

// MarkNotified records that a notification fired at the given time.
func (p *Policy) MarkNotified(now time.Time) {
	if p == nil {
		return
	}
	p.lastNotified = now
}
