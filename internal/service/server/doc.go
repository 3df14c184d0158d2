// Package server runs the alarm scheduler daemon.
//
// It loads settings, guards against a second scheduler on the same host, and
// supervises the alarm engine, the gRPC intake and the console intake until the
// context is canceled or the console reaches end of input.
package server
