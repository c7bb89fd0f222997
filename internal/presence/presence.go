// Package presence models the typing indicator on both directions of the
// channel: an optional rate limit on outbound typing events, and a
// last-writer-wins, self-expiring hint for inbound ones.
package presence

import "time"

// DefaultTTL is how long a typing hint stays visible without a fresh
// signal.
const DefaultTTL = 2 * time.Second

// Indicator holds the single rendered typing hint. A new signal from any
// user replaces the current hint and restarts its lifetime; the generation
// counter lets the owner discard expiry timers armed for an older signal.
type Indicator struct {
	ttl  time.Duration
	user string
	gen  uint64
}

func NewIndicator(ttl time.Duration) *Indicator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Indicator{ttl: ttl}
}

func (i *Indicator) TTL() time.Duration { return i.ttl }

// Signal records that username is typing and returns the generation to arm
// the expiry timer with.
func (i *Indicator) Signal(username string) uint64 {
	i.user = username
	i.gen++
	return i.gen
}

// Expire clears the hint only if gen is still current. A stale fire (a
// newer signal arrived while the timer was in flight) is ignored. Reports
// whether the hint changed.
func (i *Indicator) Expire(gen uint64) bool {
	if gen != i.gen || i.user == "" {
		return false
	}
	i.user = ""
	return true
}

// Clear drops the hint unconditionally, e.g. on leaving the room.
func (i *Indicator) Clear() {
	i.user = ""
	i.gen++
}

// Active returns the username currently shown as typing, or "".
func (i *Indicator) Active() string { return i.user }

// Limiter rate-limits outbound typing events. A zero interval disables
// limiting and every local edit emits a signal, matching the original
// per-keystroke behavior; the interval is a policy parameter, not a hidden
// constant.
type Limiter struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{interval: interval, now: time.Now}
}

// Allow reports whether a typing event may be emitted now.
func (l *Limiter) Allow() bool {
	if l.interval <= 0 {
		return true
	}
	now := l.now()
	if !l.last.IsZero() && now.Sub(l.last) < l.interval {
		return false
	}
	l.last = now
	return true
}
