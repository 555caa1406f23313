package memory

import (
	"context"
	"testing"

	"live-quiz-service/internal/domain"
)

func TestUserStoreCommitPoints(t *testing.T) {
	store := NewUserStore(domain.User{ID: "u1", Username: "alice", Points: 4})

	u, err := store.CommitPoints(context.Background(), "u1", 6)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if u.Points != 10 {
		t.Fatalf("expected 10 points, got %d", u.Points)
	}
	if _, err := store.CommitPoints(context.Background(), "u2", 1); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserStoreFindUser(t *testing.T) {
	store := NewUserStore()
	store.Put(domain.User{ID: "u1", Username: "alice"})

	u, err := store.FindUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if u.Username != "alice" {
		t.Fatalf("expected alice, got %q", u.Username)
	}
	if _, err := store.FindUser(context.Background(), "u2"); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
