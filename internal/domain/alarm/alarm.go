package alarm

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

const (
	// MaxMessageLength is the upper bound, in bytes, of an alarm message.
	MaxMessageLength = 128
	// MaxIntervalSeconds is the largest accepted interval, the 32-bit range of the wire format.
	MaxIntervalSeconds = math.MaxInt32
)

// Request carries the caller-supplied attributes of an insert or update.
type Request struct {
	// ID identifies the alarm; unique among live alarms.
	ID int
	// GroupID selects the display worker that serves the alarm.
	GroupID int
	// IntervalSeconds is the lifetime of the alarm counted from the request.
	IntervalSeconds int
	// Message is the text the group worker keeps printing.
	Message string
	// Actor is the remote caller, nil for console requests.
	Actor *Actor
}

// Validate rejects requests the registry cannot represent.
func (r *Request) Validate() error {
	if r.IntervalSeconds < 0 || r.IntervalSeconds > MaxIntervalSeconds {
		return fmt.Errorf("%w: interval %d outside [0, %d]", ErrInvalidRequest, r.IntervalSeconds, MaxIntervalSeconds)
	}

	return nil
}

// Interval returns IntervalSeconds as a duration.
func (r *Request) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

// Alarm is a registered, group-tagged timer.
type Alarm struct {
	// ID is the caller-supplied key of the alarm.
	ID int
	// GroupID is the group the alarm currently belongs to.
	GroupID int
	// Interval is the interval applied by the last insert or update.
	Interval time.Duration
	// Message is the current text of the alarm.
	Message string
	// Deadline is the moment of the last insert or update plus Interval.
	Deadline time.Time
	// Changed is set once the alarm has been updated at least once.
	Changed bool
	// Revision counts the updates applied to the alarm.
	Revision uint64
	// InsertedAt is when the alarm entered the registry.
	InsertedAt time.Time
	// UpdatedAt is when the alarm was last inserted or updated.
	UpdatedAt time.Time
}

// NewAlarm builds an alarm for an insert request received at now.
func NewAlarm(req *Request, now time.Time) *Alarm {
	return &Alarm{
		ID:         req.ID,
		GroupID:    req.GroupID,
		Interval:   req.Interval(),
		Message:    TruncateMessage(req.Message),
		Deadline:   now.Add(req.Interval()),
		InsertedAt: now,
		UpdatedAt:  now,
	}
}

// Apply overwrites the mutable attributes from an update request received at now.
// The deadline is recomputed from now, never adjusted.
func (a *Alarm) Apply(req *Request, now time.Time) {
	a.GroupID = req.GroupID
	a.Interval = req.Interval()
	a.Message = TruncateMessage(req.Message)
	a.Deadline = now.Add(req.Interval())
	a.UpdatedAt = now
	a.Changed = true
	a.Revision++
}

// Expired reports whether the deadline has passed at now.
func (a *Alarm) Expired(now time.Time) bool {
	return !a.Deadline.After(now)
}

// Clone returns a copy of the alarm to avoid leaking registry references.
func (a *Alarm) Clone() *Alarm {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// TruncateMessage cuts s to MaxMessageLength bytes without splitting a rune.
func TruncateMessage(s string) string {
	if len(s) <= MaxMessageLength {
		return s
	}

	cut := MaxMessageLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut]
}
