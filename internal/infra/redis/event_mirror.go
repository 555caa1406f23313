package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/fanout"
)

// EventMirror republishes room broadcasts on quiz:room:{roomID}:events for
// out-of-process observers. Handle never blocks; when the buffer is full the
// event is dropped and counted.
type EventMirror struct {
	client  *redis.Client
	queue   chan mirrorMessage
	dropped atomic.Int64
	log     *slog.Logger
}

type mirrorMessage struct {
	Room  domain.RoomID `json:"room"`
	Event string        `json:"event"`
	Data  any           `json:"data,omitempty"`
}

func NewEventMirror(client *redis.Client, buffer int, logger *slog.Logger) *EventMirror {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventMirror{
		client: client,
		queue:  make(chan mirrorMessage, buffer),
		log:    logger,
	}
}

// Handle queues broadcast envelopes. Targeted deliveries stay private.
func (m *EventMirror) Handle(env fanout.Envelope) {
	if !env.Broadcast {
		return
	}
	frame := fanout.NewFrame(env.Event)
	select {
	case m.queue <- mirrorMessage{Room: env.Room, Event: frame.Event, Data: frame.Data}:
	default:
		m.dropped.Add(1)
	}
}

// Dropped is the number of events discarded because Run fell behind.
func (m *EventMirror) Dropped() int64 {
	return m.dropped.Load()
}

// Run publishes queued events until ctx is done.
func (m *EventMirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-m.queue:
			payload, err := json.Marshal(msg)
			if err != nil {
				m.log.Error("encode mirrored event", slog.String("event", msg.Event), slog.Any("err", err))
				continue
			}
			if err := m.client.Publish(ctx, EventsChannel(msg.Room), payload).Err(); err != nil && ctx.Err() == nil {
				m.log.Warn("publish mirrored event",
					slog.String("room", string(msg.Room)),
					slog.String("event", msg.Event),
					slog.Any("err", err),
				)
			}
		}
	}
}

// EventsChannel is the pub/sub channel carrying a room's broadcasts.
func EventsChannel(id domain.RoomID) string {
	return "quiz:room:" + string(id) + ":events"
}
