package logger

import (
	"fmt"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

const (
	// DefaultFileMaxAge is how long rotated log files are kept.
	DefaultFileMaxAge = 24 * time.Hour
	// DefaultFileRotationTime is how often a new log file is started.
	DefaultFileRotationTime = time.Hour
)

// OpenRotatingFile opens a time-rotated log file. The pattern uses strftime
// verbs, e.g. "alarm-scheduler-%Y-%m-%d-%H.log".
func OpenRotatingFile(pattern string, maxAge, rotation time.Duration) (*rotatelogs.RotateLogs, error) {
	if maxAge <= 0 {
		maxAge = DefaultFileMaxAge
	}

	if rotation <= 0 {
		rotation = DefaultFileRotationTime
	}

	w, err := rotatelogs.New(
		pattern,
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(rotation),
	)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", pattern, err)
	}

	return w, nil
}
