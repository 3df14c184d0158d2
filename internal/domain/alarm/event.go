package alarm

import "time"

// EventKind names a side effect reported by the scheduler.
type EventKind string

const (
	// EventInserted is reported when an alarm enters the registry.
	EventInserted EventKind = "inserted"
	// EventChanged is reported when an update is applied.
	EventChanged EventKind = "changed"
	// EventUpdateRejected is reported when an update names an unknown id.
	EventUpdateRejected EventKind = "update_rejected"
	// EventExpired is reported when the reaper removes an alarm past its deadline.
	EventExpired EventKind = "expired"
	// EventWorkerCreated is reported when the dispatcher spawns a group worker.
	EventWorkerCreated EventKind = "worker_created"
	// EventWorkerNotified is reported when the dispatcher hands an alarm to a running worker.
	EventWorkerNotified EventKind = "worker_notified"
	// EventDisplayStarted is reported once per worker, on its first display.
	EventDisplayStarted EventKind = "display_started"
	// EventDisplayTakenOver replaces EventDisplayStarted when the first alarm
	// displayed by the worker arrived through an update.
	EventDisplayTakenOver EventKind = "display_taken_over"
	// EventMessageChanged is reported once per applied update, on the first display after it.
	EventMessageChanged EventKind = "message_changed"
	// EventPrinted is the periodic display line.
	EventPrinted EventKind = "printed"
	// EventStoppedRemoved is reported when a served alarm left the registry.
	EventStoppedRemoved EventKind = "stopped_removed"
	// EventStoppedGroupChanged is reported when a served alarm moved to another group.
	EventStoppedGroupChanged EventKind = "stopped_group_changed"
	// EventWorkerExited is reported when a worker runs out of alarms.
	EventWorkerExited EventKind = "worker_exited"
)

// descriptions are the human-readable log messages for each kind.
//
//nolint:gochecknoglobals // Read-only lookup table.
var descriptions = map[EventKind]string{
	EventInserted:            "Alarm inserted into alarm list",
	EventChanged:             "Alarm changed",
	EventUpdateRejected:      "No alarm with such id",
	EventExpired:             "Alarm removal thread has removed expired alarm",
	EventWorkerCreated:       "Group display thread created",
	EventWorkerNotified:      "Group display thread assigned alarm",
	EventDisplayStarted:      "Display thread started printing",
	EventDisplayTakenOver:    "Display thread has taken over printing",
	EventMessageChanged:      "Display thread starts to print changed message",
	EventPrinted:             "Alarm printed by display thread",
	EventStoppedRemoved:      "Display thread has stopped printing removed alarm",
	EventStoppedGroupChanged: "Display thread has stopped printing alarm of changed group",
	EventWorkerExited:        "No more alarms in group, display thread exiting",
}

// Describe returns the log message of the kind.
func (k EventKind) Describe() string {
	if d, ok := descriptions[k]; ok {
		return d
	}

	return string(k)
}

// Event is a structured side effect of the scheduler.
// Formatting is left to the sink.
type Event struct {
	// Kind is what happened.
	Kind EventKind
	// AlarmID is the alarm concerned; zero for worker-only events.
	AlarmID int
	// GroupID is the group of the alarm or worker.
	GroupID int
	// WorkerID identifies the group worker, empty for registry events.
	WorkerID string
	// At is when the event happened.
	At time.Time
	// Deadline is the alarm deadline at the time of the event.
	Deadline time.Time
	// Interval is the alarm interval at the time of the event.
	Interval time.Duration
	// Message is the alarm message at the time of the event.
	Message string
}

// AlarmEvent builds an event of kind k describing a.
func AlarmEvent(k EventKind, a *Alarm, at time.Time) Event {
	return Event{
		Kind:     k,
		AlarmID:  a.ID,
		GroupID:  a.GroupID,
		At:       at,
		Deadline: a.Deadline,
		Interval: a.Interval,
		Message:  a.Message,
	}
}

// Fields returns the event as zap-style key-value pairs.
func (e *Event) Fields() []any {
	kvs := []any{
		"event", string(e.Kind),
		"group_id", e.GroupID,
		"at", e.At.Unix(),
	}

	if e.AlarmID != 0 || e.Message != "" {
		kvs = append(kvs,
			"alarm_id", e.AlarmID,
			"deadline", e.Deadline.Unix(),
			"interval", e.Interval.String(),
			"message", e.Message,
		)
	}

	if e.WorkerID != "" {
		kvs = append(kvs, "worker_id", e.WorkerID)
	}

	return kvs
}
