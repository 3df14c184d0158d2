// Package watcher polls a running alarm scheduler and reports its alarms.
//
// It backs the list and watch subcommands of alarm-ctl.
package watcher
