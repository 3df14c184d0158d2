package alarm

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully-qualified gRPC service name.
	ServiceName = "alarm.v1.AlarmScheduler"

	// InsertAlarmMethod is the full method name of InsertAlarm.
	InsertAlarmMethod = "/" + ServiceName + "/InsertAlarm"
	// UpdateAlarmMethod is the full method name of UpdateAlarm.
	UpdateAlarmMethod = "/" + ServiceName + "/UpdateAlarm"
	// ListAlarmsMethod is the full method name of ListAlarms.
	ListAlarmsMethod = "/" + ServiceName + "/ListAlarms"
)

// SchedulerServer is the server API of the AlarmScheduler service.
type SchedulerServer interface {
	InsertAlarm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateAlarm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListAlarms(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes the AlarmScheduler service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by gRPC convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "InsertAlarm", Handler: insertAlarmHandler},
		{MethodName: "UpdateAlarm", Handler: updateAlarmHandler},
		{MethodName: "ListAlarms", Handler: listAlarmsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alarm/v1/scheduler.proto",
}

// RegisterSchedulerServer registers srv on the gRPC server.
func RegisterSchedulerServer(registrar grpc.ServiceRegistrar, srv SchedulerServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

func insertAlarmHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(SchedulerServer).InsertAlarm(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InsertAlarmMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SchedulerServer).InsertAlarm(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func updateAlarmHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(SchedulerServer).UpdateAlarm(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: UpdateAlarmMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SchedulerServer).UpdateAlarm(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func listAlarmsHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(SchedulerServer).ListAlarms(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListAlarmsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SchedulerServer).ListAlarms(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}
