// Package exec manages the lifecycle of the single outstanding remote
// code-execution request a room may have.
package exec

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrBusy      = errors.New("an execution is already pending")
	ErrBlankCode = errors.New("document is blank")
)

// DefaultTimeout bounds how long a request may stay pending. The original
// contract left this unbounded; a zero timeout restores that behavior.
const DefaultTimeout = 30 * time.Second

type Status int

const (
	StatusIdle Status = iota
	StatusPending
)

// Coordinator enforces at-most-one-in-flight. Requests are bound to the
// room they were issued in; a result arriving for any other room, in
// particular after the room was left, is discarded.
type Coordinator struct {
	status   Status
	roomID   string
	gen      uint64
	issuedAt time.Time

	output    string
	hasOutput bool
}

func NewCoordinator() *Coordinator { return &Coordinator{} }

func (c *Coordinator) Status() Status { return c.status }

// Output returns the last stored result and whether one is visible.
func (c *Coordinator) Output() (string, bool) { return c.output, c.hasOutput }

// IssuedAt returns when the current pending request was started; zero
// while Idle.
func (c *Coordinator) IssuedAt() time.Time { return c.issuedAt }

// Start validates and records a run intent. Returns the generation to arm
// a timeout timer with.
func (c *Coordinator) Start(roomID, code string, now time.Time) (uint64, error) {
	if c.status == StatusPending {
		return 0, ErrBusy
	}
	if strings.TrimSpace(code) == "" {
		return 0, ErrBlankCode
	}
	c.status = StatusPending
	c.roomID = roomID
	c.issuedAt = now
	c.gen++
	return c.gen, nil
}

// Resolve completes the pending request with logs, but only if one is
// pending and it belongs to currentRoom. Reports whether anything changed;
// a late result for a room no longer joined is silently dropped.
func (c *Coordinator) Resolve(currentRoom, logs string) bool {
	if c.status != StatusPending || currentRoom == "" || c.roomID != currentRoom {
		return false
	}
	c.status = StatusIdle
	c.issuedAt = time.Time{}
	c.output = logs
	c.hasOutput = true
	return true
}

// Timeout abandons the pending request, but only if gen still identifies
// it; stale fires from already-resolved requests are ignored.
func (c *Coordinator) Timeout(gen uint64) bool {
	if c.status != StatusPending || gen != c.gen {
		return false
	}
	c.status = StatusIdle
	c.issuedAt = time.Time{}
	return true
}

// Reset discards all execution state. Called on leaving a room; the remote
// execution may still complete, and its result will fail the Resolve room
// check.
func (c *Coordinator) Reset() {
	c.status = StatusIdle
	c.roomID = ""
	c.issuedAt = time.Time{}
	c.output = ""
	c.hasOutput = false
	c.gen++
}
