// Package alarm contains core domain types for the alarm scheduler.
//
// It defines Request (what a caller asks for), Alarm (what the registry holds),
// Event (what the engine reports) and Actor (who asked), together with the
// sentinel errors shared by the registry, the engine and the transports.
package alarm
