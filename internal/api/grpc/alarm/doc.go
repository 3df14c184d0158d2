// Package alarm implements the gRPC transport for the alarm scheduler.
//
// The service descriptor is written by hand and carries protobuf well-known
// types (structpb.Struct, emptypb.Empty), so no generated code is needed. The
// codec helpers convert between those messages and domain types and are shared
// with the client.
package alarm
