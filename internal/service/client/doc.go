// Package client pushes alarm requests to a running alarm scheduler.
//
// It backs the start and change subcommands of alarm-ctl: it connects to the
// scheduler, sends the request with the caller's identity attached, and retries
// while the scheduler is unreachable.
package client
