package persistence

import (
	"time"

	"github.com/asaidimu/go-daybed/core/schema"
)

// NewEvent builds an event, stamping it with the current time and, when
// startTime is set, the elapsed duration.
func NewEvent(
	eventType EventType,
	operation string,
	model string,
	err error,
	issues []schema.Issue,
	startTime time.Time,
) Event {
	var duration *int64
	if !startTime.IsZero() {
		d := time.Since(startTime).Milliseconds()
		duration = &d
	}

	var errStr *string
	if err != nil {
		msg := err.Error()
		errStr = &msg
	}

	return Event{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Operation: operation,
		Model:     model,
		Error:     errStr,
		Issues:    issues,
		Duration:  duration,
	}
}
