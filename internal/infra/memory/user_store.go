package memory

import (
	"context"
	"sync"

	"live-quiz-service/internal/domain"
)

// UserStore keeps accounts in memory. It backs the no-DB mode and tests.
type UserStore struct {
	mu    sync.RWMutex
	users map[domain.UserID]domain.User
}

func NewUserStore(users ...domain.User) *UserStore {
	s := &UserStore{users: make(map[domain.UserID]domain.User, len(users))}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

// Put adds or replaces an account.
func (s *UserStore) Put(u domain.User) {
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
}

func (s *UserStore) FindUser(_ context.Context, id domain.UserID) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *UserStore) CommitPoints(_ context.Context, id domain.UserID, delta int) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	u.Points += delta
	s.users[id] = u
	return u, nil
}
