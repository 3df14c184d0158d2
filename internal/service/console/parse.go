package console

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
)

// Kind is the type of an operator command.
type Kind int

const (
	// KindStart inserts a new alarm.
	KindStart Kind = iota + 1
	// KindChange updates an existing alarm.
	KindChange
	// KindList prints the registered alarms.
	KindList
)

// Command is a parsed operator line.
type Command struct {
	// Kind selects the engine operation.
	Kind Kind
	// Request holds the alarm attributes for start and change commands.
	Request *domain.Request
}

// ErrMalformedRequest is returned for lines that match no command.
var ErrMalformedRequest = errors.New("invalid alarm request")

// alarmPattern matches "<verb>(<id>): Group(<group>) <seconds> <message>".
var alarmPattern = regexp.MustCompile(`^(Start_Alarm|Change_Alarm)\((\d+)\):\s*Group\((\d+)\)\s+(\d+)\s+(\S.*)$`)

const listCommand = "List_Alarms"

// Parse turns one operator line into a command.
func Parse(line string) (*Command, error) {
	line = strings.TrimSpace(line)

	if line == listCommand {
		return &Command{Kind: KindList}, nil
	}

	match := alarmPattern.FindStringSubmatch(line)
	if match == nil {
		return nil, ErrMalformedRequest
	}

	numbers := make([]int, 0, 3)

	for _, raw := range match[2:5] {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
		}

		numbers = append(numbers, n)
	}

	kind := KindStart
	if match[1] == "Change_Alarm" {
		kind = KindChange
	}

	req := &domain.Request{
		ID:              numbers[0],
		GroupID:         numbers[1],
		IntervalSeconds: numbers[2],
		Message:         domain.TruncateMessage(strings.TrimSpace(match[5])),
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	return &Command{Kind: kind, Request: req}, nil
}
