// Package scheduler runs the alarm engine: the group dispatcher, the expiry
// reaper and one display worker per active group, all sharing a registry.
//
// Callers feed requests through Engine.InsertAlarm and Engine.UpdateAlarm and
// observe everything else through the EventSink. Engine.Run owns every
// background goroutine and returns only after all of them stopped.
package scheduler
