package alarm

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
)

// Service abstracts the engine operations the transport layer depends on.
type Service interface {
	InsertAlarm(ctx context.Context, req *domain.Request) (*domain.Alarm, error)
	UpdateAlarm(ctx context.Context, req *domain.Request) (*domain.Alarm, error)
	ListAlarms(ctx context.Context) []*domain.Alarm
}

// Server implements the AlarmScheduler gRPC API.
type Server struct {
	// service provides the engine operations.
	service Service
}

var _ SchedulerServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// InsertAlarm registers a new alarm.
func (s *Server) InsertAlarm(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode(in)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "actor", req.Actor.String())

	a, err := s.service.InsertAlarm(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(a)
}

// UpdateAlarm changes a registered alarm.
func (s *Server) UpdateAlarm(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode(in)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "actor", req.Actor.String())

	a, err := s.service.UpdateAlarm(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(a)
}

// ListAlarms returns the registered alarms in id order.
func (s *Server) ListAlarms(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := EncodeAlarms(s.service.ListAlarms(ctx))
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode alarms")
	}

	return out, nil
}

func decode(in *structpb.Struct) (*domain.Request, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	req, err := DecodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	return req, nil
}

func encode(a *domain.Alarm) (*structpb.Struct, error) {
	out, err := EncodeAlarm(a)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode alarm")
	}

	return out, nil
}

// toStatus maps domain errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrDuplicateID):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
