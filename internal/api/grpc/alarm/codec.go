package alarm

import (
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
)

// Field names of the wire messages.
const (
	fieldID              = "id"
	fieldGroupID         = "group_id"
	fieldIntervalSeconds = "interval_seconds"
	fieldMessage         = "message"
	fieldActor           = "actor"
	fieldHostname        = "hostname"
	fieldUsername        = "username"
	fieldDeadline        = "deadline"
	fieldChanged         = "changed"
	fieldRevision        = "revision"
	fieldInsertedAt      = "inserted_at"
	fieldUpdatedAt       = "updated_at"
	fieldAlarms          = "alarms"
)

var (
	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing field")
	// ErrBadField is returned when a field has the wrong type or range.
	ErrBadField = errors.New("bad field")
)

// EncodeRequest converts a domain request into its wire form.
func EncodeRequest(req *domain.Request) (*structpb.Struct, error) {
	fields := map[string]any{
		fieldID:              req.ID,
		fieldGroupID:         req.GroupID,
		fieldIntervalSeconds: req.IntervalSeconds,
		fieldMessage:         req.Message,
	}

	if req.Actor != nil {
		fields[fieldActor] = map[string]any{
			fieldHostname: req.Actor.Hostname,
			fieldUsername: req.Actor.Username,
		}
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	return s, nil
}

// DecodeRequest converts a wire request into a domain request.
func DecodeRequest(s *structpb.Struct) (*domain.Request, error) {
	fields := s.GetFields()

	id, err := intField(fields, fieldID)
	if err != nil {
		return nil, err
	}

	group, err := intField(fields, fieldGroupID)
	if err != nil {
		return nil, err
	}

	interval, err := intField(fields, fieldIntervalSeconds)
	if err != nil {
		return nil, err
	}

	message, err := stringField(fields, fieldMessage)
	if err != nil {
		return nil, err
	}

	req := &domain.Request{
		ID:              id,
		GroupID:         group,
		IntervalSeconds: interval,
		Message:         message,
	}

	if actor := fields[fieldActor].GetStructValue(); actor != nil {
		req.Actor = &domain.Actor{
			Hostname: actor.GetFields()[fieldHostname].GetStringValue(),
			Username: actor.GetFields()[fieldUsername].GetStringValue(),
		}
	}

	return req, nil
}

// EncodeAlarm converts an alarm into its wire form.
func EncodeAlarm(a *domain.Alarm) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(alarmFields(a))
	if err != nil {
		return nil, fmt.Errorf("encode alarm: %w", err)
	}

	return s, nil
}

// DecodeAlarm converts a wire alarm into a domain alarm.
func DecodeAlarm(s *structpb.Struct) (*domain.Alarm, error) {
	fields := s.GetFields()

	id, err := intField(fields, fieldID)
	if err != nil {
		return nil, err
	}

	group, err := intField(fields, fieldGroupID)
	if err != nil {
		return nil, err
	}

	interval, err := intField(fields, fieldIntervalSeconds)
	if err != nil {
		return nil, err
	}

	revision, err := intField(fields, fieldRevision)
	if err != nil {
		return nil, err
	}

	a := &domain.Alarm{
		ID:       id,
		GroupID:  group,
		Interval: time.Duration(interval) * time.Second,
		Message:  fields[fieldMessage].GetStringValue(),
		Changed:  fields[fieldChanged].GetBoolValue(),
		Revision: uint64(max(revision, 0)),
	}

	for name, target := range map[string]*time.Time{
		fieldDeadline:   &a.Deadline,
		fieldInsertedAt: &a.InsertedAt,
		fieldUpdatedAt:  &a.UpdatedAt,
	} {
		if *target, err = timeField(fields, name); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// EncodeAlarms converts an alarm list into its wire form.
func EncodeAlarms(alarms []*domain.Alarm) (*structpb.Struct, error) {
	items := make([]any, 0, len(alarms))
	for _, a := range alarms {
		items = append(items, alarmFields(a))
	}

	s, err := structpb.NewStruct(map[string]any{fieldAlarms: items})
	if err != nil {
		return nil, fmt.Errorf("encode alarms: %w", err)
	}

	return s, nil
}

// DecodeAlarms converts a wire alarm list into domain alarms.
func DecodeAlarms(s *structpb.Struct) ([]*domain.Alarm, error) {
	values := s.GetFields()[fieldAlarms].GetListValue().GetValues()
	result := make([]*domain.Alarm, 0, len(values))

	for _, v := range values {
		a, err := DecodeAlarm(v.GetStructValue())
		if err != nil {
			return nil, err
		}

		result = append(result, a)
	}

	return result, nil
}

func alarmFields(a *domain.Alarm) map[string]any {
	return map[string]any{
		fieldID:              a.ID,
		fieldGroupID:         a.GroupID,
		fieldIntervalSeconds: int(a.Interval / time.Second),
		fieldMessage:         a.Message,
		fieldDeadline:        formatTime(a.Deadline),
		fieldChanged:         a.Changed,
		fieldRevision:        a.Revision,
		fieldInsertedAt:      formatTime(a.InsertedAt),
		fieldUpdatedAt:       formatTime(a.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func intField(fields map[string]*structpb.Value, name string) (int, error) {
	v, ok := fields[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, name)
	}

	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a number", ErrBadField, name)
	}

	f := n.NumberValue
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%w: %s is not a 32-bit integer", ErrBadField, name)
	}

	return int(f), nil
}

func stringField(fields map[string]*structpb.Value, name string) (string, error) {
	v, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, name)
	}

	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrBadField, name)
	}

	return s.StringValue, nil
}

func timeField(fields map[string]*structpb.Value, name string) (time.Time, error) {
	raw := fields[name].GetStringValue()
	if raw == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %w", ErrBadField, name, err)
	}

	return t, nil
}
