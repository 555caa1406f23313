package memory

import (
	"testing"
	"time"

	"live-quiz-service/internal/app"
)

func TestRoomStoreLifecycle(t *testing.T) {
	store := NewRoomStore()
	now := time.Now()

	older := app.NewRoom("room-1", sampleQuiz(), now)
	newer := app.NewRoom("room-2", sampleQuiz(), now.Add(time.Second))
	if err := store.Add(newer); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Add(older); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Add(older); err == nil {
		t.Fatalf("expected duplicate id to be rejected")
	}

	if _, ok := store.Get("room-1"); !ok {
		t.Fatalf("expected room present")
	}
	rooms := store.List()
	if len(rooms) != 2 || rooms[0].ID() != "room-1" {
		t.Fatalf("expected rooms oldest first, got %d rooms", len(rooms))
	}

	store.Delete("room-1")
	if _, ok := store.Get("room-1"); ok {
		t.Fatalf("expected room removed")
	}
	if got := len(store.List()); got != 1 {
		t.Fatalf("expected 1 room left, got %d", got)
	}
	var _ app.RoomRepository = store
}
