// Package config defines the settings shared by the scheduler binaries and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type holds the gRPC address, the engine periods, the client call
// timeout and the log level.
package config
