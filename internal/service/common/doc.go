// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client for the scheduler with call timeouts
// and domain error mapping, and a helper to detect the current system actor
// (hostname/username) for audit purposes.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
