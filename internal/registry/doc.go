// Package registry holds the shared, id-ordered set of live alarms.
//
// Every operation runs under one reader/writer lock, so inserts, updates and
// removals are linearizable and readers always observe whole alarms. Mutations
// wake goroutines waiting on Notify and queue dispatch notifications that the
// group dispatcher drains with TakePending.
package registry
