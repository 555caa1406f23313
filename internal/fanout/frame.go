package fanout

import "live-quiz-service/internal/domain"

// Frame is the outbound wire shape: {"event": "<kind>", "data": <payload>}.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func NewFrame(ev domain.Event) Frame {
	return Frame{Event: ev.Kind(), Data: ev}
}
