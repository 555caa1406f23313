package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

// RoomStore is a Redis-aware implementation of app.RoomRepository.
// Rooms and their timers live in process; Redis only carries a TTL'd liveness
// marker per room so other instances can tell which room ids are live.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration
	local  *memory.RoomStore
	log    *slog.Logger
}

func NewRoomStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RoomStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoomStore{
		client: client,
		ttl:    ttl,
		local:  memory.NewRoomStore(),
		log:    logger,
	}
}

func (s *RoomStore) Add(room *app.Room) error {
	if err := s.local.Add(room); err != nil {
		return err
	}
	// best-effort liveness marker
	if err := s.client.Set(context.Background(), roomKey(room.ID()), string(room.Status()), s.ttl).Err(); err != nil {
		s.log.Warn("mark room live", slog.String("room", string(room.ID())), slog.Any("err", err))
	}
	return nil
}

func (s *RoomStore) Get(id domain.RoomID) (*app.Room, bool) {
	return s.local.Get(id)
}

func (s *RoomStore) Delete(id domain.RoomID) {
	s.local.Delete(id)
	if err := s.client.Del(context.Background(), roomKey(id)).Err(); err != nil {
		s.log.Warn("clear room marker", slog.String("room", string(id)), slog.Any("err", err))
	}
}

func (s *RoomStore) List() []*app.Room {
	return s.local.List()
}

// IsLive reports whether any instance holds the room.
func (s *RoomStore) IsLive(ctx context.Context, id domain.RoomID) (bool, error) {
	n, err := s.client.Exists(ctx, roomKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Refresh rewrites the marker of every local room with its current status and a fresh TTL.
func (s *RoomStore) Refresh(ctx context.Context) error {
	rooms := s.local.List()
	if len(rooms) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, room := range rooms {
		pipe.Set(ctx, roomKey(room.ID()), string(room.Status()), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Keepalive refreshes markers every interval until ctx is done.
func (s *RoomStore) Keepalive(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("refresh room markers", slog.Any("err", err))
			}
		}
	}
}

func roomKey(id domain.RoomID) string {
	return "quiz:room:" + string(id)
}
