//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/alarm-groups/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-groups/internal/config"
	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
)

// Client calls the AlarmScheduler service.
type Client struct {
	// conn is the underlying gRPC connection to the scheduler.
	conn grpc.ClientConnInterface
	// closer releases conn, nil when the connection is not owned.
	closer func() error

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errRequestRequired is returned when a nil request is passed.
	errRequestRequired = errors.New("request must be provided")
	// ErrUnavailable is returned when the scheduler cannot be reached.
	ErrUnavailable = errors.New("scheduler unavailable")
)

// Dial establishes a gRPC connection to the scheduler.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial alarm scheduler: %w", err)
	}

	client := NewClient(conn, opts...)
	client.closer = conn.Close

	return client, nil
}

// NewClient wraps an existing connection; the caller keeps ownership of it.
func NewClient(conn grpc.ClientConnInterface, opts ...Option) *Client {
	client := &Client{
		conn:        conn,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection when it is owned by the client.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}

	return c.closer()
}

// InsertAlarm registers a new alarm on the scheduler.
func (c *Client) InsertAlarm(ctx context.Context, req *domain.Request) (*domain.Alarm, error) {
	return c.send(ctx, api.InsertAlarmMethod, req)
}

// UpdateAlarm changes an alarm on the scheduler.
func (c *Client) UpdateAlarm(ctx context.Context, req *domain.Request) (*domain.Alarm, error) {
	return c.send(ctx, api.UpdateAlarmMethod, req)
}

// ListAlarms returns the alarms registered on the scheduler.
func (c *Client) ListAlarms(ctx context.Context) ([]*domain.Alarm, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, api.ListAlarmsMethod, new(emptypb.Empty), out); err != nil {
		return nil, fmt.Errorf("list alarms: %w", fromStatus(err))
	}

	return api.DecodeAlarms(out)
}

func (c *Client) send(ctx context.Context, method string, req *domain.Request) (*domain.Alarm, error) {
	if req == nil {
		return nil, errRequestRequired
	}

	in, err := api.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	out := new(structpb.Struct)
	if err = c.conn.Invoke(callCtx, method, in, out); err != nil {
		return nil, fmt.Errorf("alarm %d: %w", req.ID, fromStatus(err))
	}

	return api.DecodeAlarm(out)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

// fromStatus maps gRPC status codes back to domain errors.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	default:
		return err
	}
}
