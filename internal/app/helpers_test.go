package app_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/fanout"
	"live-quiz-service/internal/infra/memory"
)

// manualScheduler fires callbacks only when the test says so.
type manualScheduler struct {
	mu      sync.Mutex
	next    int
	tickers map[int]func()
	timers  map[int]func()
	// leaky keeps calling stopped tickers, like a ticker that raced its stop.
	leaky bool
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{tickers: make(map[int]func()), timers: make(map[int]func())}
}

func (m *manualScheduler) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.tickers[id] = fn
	return func() {
		if m.leaky {
			return
		}
		m.mu.Lock()
		delete(m.tickers, id)
		m.mu.Unlock()
	}
}

func (m *manualScheduler) After(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.timers[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.timers, id)
		m.mu.Unlock()
	}
}

// Tick fires every ticker registered before the call once.
func (m *manualScheduler) Tick() {
	m.mu.Lock()
	ids := make([]int, 0, len(m.tickers))
	for id := range m.tickers {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Ints(ids)

	for _, id := range ids {
		m.mu.Lock()
		fn, ok := m.tickers[id]
		m.mu.Unlock()
		if ok {
			fn()
		}
	}
}

func (m *manualScheduler) Advance(seconds int) {
	for i := 0; i < seconds; i++ {
		m.Tick()
	}
}

// FireTimers runs and clears every pending one-shot timer.
func (m *manualScheduler) FireTimers() {
	m.mu.Lock()
	pending := m.timers
	m.timers = make(map[int]func())
	m.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func (m *manualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}

type fakeConn struct {
	id string

	mu     sync.Mutex
	events []domain.Event
	closed int
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(ev domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed > 0 {
		return fmt.Errorf("conn %s closed", c.id)
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
}

func (c *fakeConn) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]string, len(c.events))
	for i, ev := range c.events {
		kinds[i] = ev.Kind()
	}
	return kinds
}

func (c *fakeConn) Count(kind string) int {
	n := 0
	for _, k := range c.Kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (c *fakeConn) Last(kind string) (domain.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Kind() == kind {
			return c.events[i], true
		}
	}
	return nil, false
}

func (c *fakeConn) Ticks(phase domain.Phase) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var counts []int
	for _, ev := range c.events {
		if tick, ok := ev.(domain.CountdownTick); ok && tick.Phase == phase {
			counts = append(counts, tick.Count)
		}
	}
	return counts
}

// Revealed lists question ids in the order they were shown.
func (c *fakeConn) Revealed() []domain.QuestionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []domain.QuestionID
	for _, ev := range c.events {
		if q, ok := ev.(domain.QuestionRevealed); ok {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

func (c *fakeConn) Reset() {
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
}

type countingUsers struct {
	*memory.UserStore
	calls int
}

func (u *countingUsers) CommitPoints(ctx context.Context, id domain.UserID, delta int) (domain.User, error) {
	u.calls++
	return u.UserStore.CommitPoints(ctx, id, delta)
}

type harness struct {
	t       *testing.T
	svc     *app.SessionService
	sched   *manualScheduler
	rooms   *memory.RoomStore
	quizzes *memory.QuizRepository
	users   *countingUsers
	nextCon int
}

var (
	owner = domain.User{ID: "owner", Username: "olivia"}
	alice = domain.User{ID: "alice", Username: "alice"}
	bob   = domain.User{ID: "bob", Username: "bob"}
	carol = domain.User{ID: "carol", Username: "carol"}
)

func noShuffle(int, func(int, int)) {}

func reverseShuffle(n int, swap func(i, j int)) {
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

func newHarness(t *testing.T, quizzes ...domain.Quiz) *harness {
	t.Helper()
	return newShuffledHarness(t, noShuffle, quizzes...)
}

func newShuffledHarness(t *testing.T, shuffle func(int, func(int, int)), quizzes ...domain.Quiz) *harness {
	t.Helper()
	if len(quizzes) == 0 {
		quizzes = []domain.Quiz{sampleQuiz()}
	}
	byID := make(map[domain.QuizID]domain.Quiz, len(quizzes))
	for _, q := range quizzes {
		byID[q.ID] = q
	}

	sched := newManualScheduler()
	rooms := memory.NewRoomStore()
	users := &countingUsers{UserStore: memory.NewUserStore(owner, alice, bob, carol)}
	repo := memory.NewQuizRepository(memory.NewStaticQuizLoader(byID), time.Minute)
	bus := fanout.NewBus(fanout.NewDeliverer(nil))
	svc := app.NewSessionService(
		rooms,
		repo,
		users,
		auth.NewBcryptHasher(bcrypt.MinCost),
		bus,
		app.Options{Scheduler: sched, Shuffle: shuffle},
	)
	return &harness{t: t, svc: svc, sched: sched, rooms: rooms, quizzes: repo, users: users}
}

func (h *harness) caller(u domain.User) (app.Caller, *fakeConn) {
	h.nextCon++
	conn := &fakeConn{id: fmt.Sprintf("%s-%d", u.ID, h.nextCon)}
	return app.Caller{User: u, Conn: conn}, conn
}

func (h *harness) room(id domain.RoomID) *app.Room {
	h.t.Helper()
	room, ok := h.rooms.Get(id)
	if !ok {
		h.t.Fatalf("room %s not registered", id)
	}
	return room
}

func (h *harness) points(id domain.UserID) int {
	h.t.Helper()
	u, err := h.users.FindUser(bgCtx, id)
	if err != nil {
		h.t.Fatalf("find user %s: %v", id, err)
	}
	return u.Points
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:     "quiz-1",
		Name:   "European capitals",
		Author: domain.Author{ID: owner.ID, Username: owner.Username},
		Questions: []domain.Question{
			{
				ID:       "q1",
				Question: "Capital of France?",
				Type:     domain.QuestionSingle,
				Duration: 10,
				Choices: []domain.Choice{
					{ID: "c1", Choice: "Paris", Correct: true},
					{ID: "c2", Choice: "Lyon"},
					{ID: "c3", Choice: "Nice"},
				},
			},
		},
	}
}

func twoQuestionQuiz() domain.Quiz {
	quiz := sampleQuiz()
	quiz.ID = "quiz-2"
	quiz.Questions = append(quiz.Questions, domain.Question{
		ID:       "q2",
		Question: "Which are Baltic capitals?",
		Type:     domain.QuestionMultiple,
		Duration: 20,
		Choices: []domain.Choice{
			{ID: "m1", Choice: "Riga", Correct: true},
			{ID: "m2", Choice: "Tallinn", Correct: true},
			{ID: "m3", Choice: "Oslo"},
		},
	})
	return quiz
}
