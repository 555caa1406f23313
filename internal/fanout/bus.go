package fanout

import (
	"log/slog"
	"sync"

	"live-quiz-service/internal/domain"
)

// Conn is one live client connection. Send must not block; implementations queue the
// event and write it from their own goroutine.
type Conn interface {
	ID() string
	Send(domain.Event) error
	Close()
}

// Envelope is one event addressed to a resolved audience inside a room.
// Broadcast marks events addressed to every participant of the room.
type Envelope struct {
	Room      domain.RoomID
	Event     domain.Event
	To        []Conn
	Broadcast bool
}

// Handler receives published envelopes. Handle is called in publish order and must not block.
type Handler interface {
	Handle(Envelope)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(Envelope)

func (f HandlerFunc) Handle(env Envelope) { f(env) }

// Bus decouples rooms from whoever needs to hear about them.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus(handlers ...Handler) *Bus {
	return &Bus{handlers: handlers}
}

// Subscribe registers h for every subsequent Publish.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Publish hands every envelope, in order, to each handler.
func (b *Bus) Publish(envs ...Envelope) {
	if len(envs) == 0 {
		return
	}
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()
	for _, env := range envs {
		for _, h := range handlers {
			h.Handle(env)
		}
	}
}

// Deliverer writes envelopes to their addressed connections.
type Deliverer struct {
	log *slog.Logger
}

func NewDeliverer(logger *slog.Logger) *Deliverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deliverer{log: logger}
}

func (d *Deliverer) Handle(env Envelope) {
	for _, conn := range env.To {
		if err := conn.Send(env.Event); err != nil {
			d.log.Debug("drop event",
				slog.String("room", string(env.Room)),
				slog.String("conn", conn.ID()),
				slog.String("event", env.Event.Kind()),
				slog.Any("err", err),
			)
		}
	}
}
