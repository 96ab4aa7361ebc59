package publishers

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/e164/e164-go/pkg/e164"
)

// Event is the lookup record published downstream.
type Event struct {
	ID              string         `json:"id"`
	Number          string         `json:"number"`
	SanitizedNumber string         `json:"sanitized_number"`
	StatusCode      int            `json:"status_code"`
	Success         bool           `json:"success"`
	Kind            string         `json:"kind,omitempty"`
	Error           string         `json:"error,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
	LookedUpAt      time.Time      `json:"looked_up_at"`
}

// NewEvent builds an Event for the number as the caller supplied it and its result.
func NewEvent(number string, res *e164.Result) Event {
	evt := Event{
		ID:              uuid.NewString(),
		Number:          number,
		SanitizedNumber: e164.Sanitize(number),
		LookedUpAt:      time.Now().UTC(),
	}
	if res != nil {
		evt.StatusCode = res.StatusCode
		evt.Success = res.IsSuccess()
		evt.Kind = string(res.Kind)
		evt.Error = res.Error
		evt.Data = res.Data
	}
	return evt
}

// Outcome is "success" or "failure"; sinks use it as a routing attribute.
func (e Event) Outcome() string {
	if e.Success {
		return "success"
	}
	return "failure"
}

// Attributes are the string attributes attached to queue/topic messages.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"event_id":    e.ID,
		"outcome":     e.Outcome(),
		"status_code": strconv.Itoa(e.StatusCode),
	}
}
