package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/fanout"
)

// RoomRepository is the room registry (in-memory, Redis-marked, etc).
type RoomRepository interface {
	Add(room *Room) error
	Get(id domain.RoomID) (*Room, bool)
	Delete(id domain.RoomID)
	List() []*Room
}

// QuizRepository loads a quiz with its questions in play order.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID domain.QuizID) (domain.Quiz, error)
}

// UserRepository reads accounts and persists final scores.
type UserRepository interface {
	FindUser(ctx context.Context, id domain.UserID) (domain.User, error)
	CommitPoints(ctx context.Context, id domain.UserID, delta int) (domain.User, error)
}

// SecretHasher protects room join passwords.
type SecretHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// Caller is the resolved identity behind one connection.
type Caller struct {
	User domain.User
	Conn fanout.Conn
}

// Options tunes the session flow. Zero values fall back to DefaultOptions.
type Options struct {
	PreStartSeconds int
	ResultsSeconds  int
	TickInterval    time.Duration
	ComposeTimeout  time.Duration
	CommitTimeout   time.Duration
	SearchLimit     int
	ChatMaxLength   int
	Scheduler       Scheduler
	Logger          *slog.Logger
	Now             func() time.Time
	Shuffle         func(n int, swap func(i, j int))
}

func DefaultOptions() Options {
	return Options{
		PreStartSeconds: 5,
		ResultsSeconds:  5,
		TickInterval:    time.Second,
		ComposeTimeout:  5 * time.Second,
		CommitTimeout:   5 * time.Second,
		SearchLimit:     5,
		ChatMaxLength:   500,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PreStartSeconds <= 0 {
		o.PreStartSeconds = d.PreStartSeconds
	}
	if o.ResultsSeconds <= 0 {
		o.ResultsSeconds = d.ResultsSeconds
	}
	if o.TickInterval <= 0 {
		o.TickInterval = d.TickInterval
	}
	if o.ComposeTimeout <= 0 {
		o.ComposeTimeout = d.ComposeTimeout
	}
	if o.CommitTimeout <= 0 {
		o.CommitTimeout = d.CommitTimeout
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = d.SearchLimit
	}
	if o.ChatMaxLength <= 0 {
		o.ChatMaxLength = d.ChatMaxLength
	}
	if o.Scheduler == nil {
		o.Scheduler = NewClockScheduler()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Shuffle == nil {
		o.Shuffle = rand.Shuffle
	}
	return o
}

type membership struct {
	room domain.RoomID
	user domain.UserID
}

// SessionService coordinates live rooms. Each room is guarded by its own lock; the
// service lock only covers the connection index.
type SessionService struct {
	rooms   RoomRepository
	quizzes QuizRepository
	users   UserRepository
	hasher  SecretHasher
	bus     *fanout.Bus
	opts    Options
	log     *slog.Logger

	mu    sync.Mutex
	conns map[string]membership
}

func NewSessionService(rooms RoomRepository, quizzes QuizRepository, users UserRepository, hasher SecretHasher, bus *fanout.Bus, opts Options) *SessionService {
	opts = opts.withDefaults()
	return &SessionService{
		rooms:   rooms,
		quizzes: quizzes,
		users:   users,
		hasher:  hasher,
		bus:     bus,
		opts:    opts,
		log:     opts.Logger,
		conns:   make(map[string]membership),
	}
}

// CreateRoom snapshots the quiz into a new pending room and returns its id.
func (s *SessionService) CreateRoom(ctx context.Context, quizID domain.QuizID, opts domain.CreateRoomOptions) (domain.RoomID, error) {
	if opts.SessionPassword.Enable && utf8.RuneCountInString(opts.SessionPassword.Password) < 3 {
		return "", fmt.Errorf("%w: password too short", domain.ErrInvalidOptions)
	}
	limit := 0
	if opts.UserCountLimit.Enable && opts.UserCountLimit.Limit > 0 {
		if opts.UserCountLimit.Limit < 2 {
			return "", fmt.Errorf("%w: user limit below 2", domain.ErrInvalidOptions)
		}
		limit = opts.UserCountLimit.Limit
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return "", fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	snapshot := quiz.Clone()
	if opts.RandomizeQuestions {
		qs := snapshot.Questions
		s.opts.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	}

	var digest string
	if opts.SessionPassword.Enable {
		digest, err = s.hasher.Hash(opts.SessionPassword.Password)
		if err != nil {
			return "", fmt.Errorf("hash room password: %w", err)
		}
	}

	room := newRoom(domain.NewRoomID(), snapshot, digest, limit, s.opts.Now())
	if err := s.rooms.Add(room); err != nil {
		return "", fmt.Errorf("register room: %w", err)
	}
	s.log.Info("room created",
		slog.String("room", string(room.id)),
		slog.String("quiz", string(quizID)),
		slog.Int("questions", len(snapshot.Questions)),
	)
	return room.id, nil
}

// Join admits the caller's connection into a room, replacing any stale connection of
// the same identity.
func (s *SessionService) Join(ctx context.Context, c Caller, roomID domain.RoomID, password string) error {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	owner := room.isOwner(c.User.ID)
	if !owner && room.hashedSecret != "" {
		if password == "" {
			return domain.ErrPasswordRequired
		}
		if !s.hasher.Verify(password, room.hashedSecret) {
			return domain.ErrInvalidPassword
		}
	}

	prev, moving := s.membershipOf(c.Conn)
	moving = moving && prev.room != roomID

	room.mu.Lock()
	if err := room.admitLocked(c.User.ID); err != nil {
		room.mu.Unlock()
		return err
	}

	p := room.find(c.User.ID)
	if p == nil {
		p = &participant{id: c.User.ID, username: c.User.Username, conn: c.Conn, seq: room.nextSeq}
		room.nextSeq++
		room.participants = append(room.participants, p)
	} else {
		p.username = c.User.Username
		if old := p.conn; old.ID() != c.Conn.ID() {
			p.conn = c.Conn
			s.forget(old, room.id)
			old.Close()
			s.log.Debug("replaced stale connection",
				slog.String("room", string(room.id)),
				slog.String("user", string(c.User.ID)),
			)
		}
	}
	s.remember(c.Conn, room.id, c.User.ID)

	room.sendTo(room.info(owner), c.Conn)
	room.broadcast(domain.UserJoined{User: p.info(), Users: room.roster()})
	s.release(room)

	// The connection is seated in roomID before its old seat goes away, so a failed
	// admission never leaves it without a room.
	if moving {
		if err := s.leave(prev.room, c.Conn); err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
			return err
		}
	}
	return nil
}

// Leave removes the caller from their room.
func (s *SessionService) Leave(_ context.Context, c Caller) error {
	m, ok := s.membershipOf(c.Conn)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return s.leave(m.room, c.Conn)
}

// Disconnect is Leave for a connection that is already gone.
func (s *SessionService) Disconnect(conn fanout.Conn) {
	m, ok := s.membershipOf(conn)
	if !ok {
		return
	}
	_ = s.leave(m.room, conn)
}

func (s *SessionService) leave(roomID domain.RoomID, conn fanout.Conn) error {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		s.forget(conn, roomID)
		return domain.ErrRoomNotFound
	}
	room.mu.Lock()
	s.forget(conn, roomID)
	p := room.findByConn(conn)
	if p == nil {
		s.release(room)
		return nil
	}
	room.remove(p)
	wasComposing := p.clearComposing()

	room.broadcast(domain.UserLeft{User: p.info(), Users: room.roster()})
	if wasComposing {
		room.broadcast(domain.ComposingChanged{Users: room.composingUsers()})
	}
	if len(room.participants) == 0 {
		s.destroyLocked(room)
	}
	s.release(room)
	return nil
}

// StartSession launches the pre-start countdown. Owner only.
func (s *SessionService) StartSession(_ context.Context, c Caller) error {
	room, p, err := s.lockCaller(c)
	if err != nil {
		return err
	}
	defer s.release(room)

	if !room.isOwner(p.id) {
		return domain.ErrUnauthorized
	}
	switch room.status {
	case domain.StatusStarting, domain.StatusStarted:
		return domain.ErrRoomAlreadyStarted
	case domain.StatusEnded:
		return domain.ErrRoomAlreadyEnded
	}
	room.status = domain.StatusStarting
	s.startCountdownLocked(room, domain.PhasePreStart, s.opts.PreStartSeconds, s.beginSessionLocked)
	return nil
}

// EndSession stops the room immediately and closes it. Owner only.
func (s *SessionService) EndSession(_ context.Context, c Caller) error {
	room, p, err := s.lockCaller(c)
	if err != nil {
		return err
	}
	defer s.release(room)

	if !room.isOwner(p.id) {
		return domain.ErrUnauthorized
	}
	if room.status == domain.StatusEnded {
		return domain.ErrRoomAlreadyEnded
	}
	live := room.status == domain.StatusStarting || room.status == domain.StatusStarted
	s.stopCountdownLocked(room)
	room.status = domain.StatusEnded
	room.broadcast(domain.SessionEnded{})
	if live {
		room.commits = room.snapshotScores()
	}
	s.log.Info("session ended by owner", slog.String("room", string(room.id)))
	s.destroyLocked(room)
	return nil
}

// SubmitAnswer records the caller's first answer to the live question.
func (s *SessionService) SubmitAnswer(_ context.Context, c Caller, questionID domain.QuestionID, answers []domain.ChoiceID) error {
	room, p, err := s.lockCaller(c)
	if err != nil {
		return err
	}
	defer s.release(room)

	q, ok := room.currentQuestion()
	if room.status != domain.StatusStarted || room.phase != domain.PhaseQuestion || !ok || room.countdown == nil {
		return domain.ErrUnauthorized
	}
	if q.ID != questionID {
		return domain.ErrInvalidAnswer
	}
	if _, dup := room.responses[p.id]; dup {
		return domain.ErrAlreadyAnswered
	}
	if err := ValidateAnswer(q, answers); err != nil {
		return err
	}

	recorded := append([]domain.ChoiceID(nil), answers...)
	room.responses[p.id] = response{answers: recorded, remaining: room.countdown.Count()}

	room.sendTo(domain.AnswerAccepted{QuestionID: q.ID, Answers: recorded}, p.conn)
	room.sendTo(room.percentage(q), room.conns(func(other *participant) bool {
		_, answered := room.responses[other.id]
		return answered || room.isOwner(other.id)
	})...)
	return nil
}

// AddTime extends the live question countdown without restarting it. Owner only.
func (s *SessionService) AddTime(_ context.Context, c Caller, seconds int) error {
	room, p, err := s.lockCaller(c)
	if err != nil {
		return err
	}
	defer s.release(room)

	if !room.isOwner(p.id) {
		return domain.ErrUnauthorized
	}
	if room.status != domain.StatusStarted || room.phase != domain.PhaseQuestion || room.countdown == nil {
		return domain.ErrUnauthorized
	}
	if seconds < 0 {
		return domain.ErrInvalidTime
	}
	room.countdown.Add(seconds)
	room.broadcast(domain.TimeAdded{Time: seconds})
	return nil
}

// Compose marks the caller as typing until StopComposing, a chat message or the timeout.
func (s *SessionService) Compose(_ context.Context, c Caller) error {
	room, p, err := s.lockCaller(c)
	if err != nil {
		return err
	}
	defer s.release(room)

	was := p.clearComposing()
	p.composing = true
	gen := p.composeGen
	p.composeStop = s.opts.Scheduler.After(s.opts.ComposeTimeout, func() {
		s.expireComposing(room, p, gen)
	})
	if !was {
		room.broadcast(domain.ComposingChanged{Users: room.composingUsers()})
	}
	return nil
}

// StopComposing clears the caller's typing flag.
func (s *SessionService) StopComposing(_ context.Context, c Caller) error {
	room, p, err := s.lockCaller(c)
	if err != nil {
		return err
	}
	defer s.release(room)

	if p.clearComposing() {
		room.broadcast(domain.ComposingChanged{Users: room.composingUsers()})
	}
	return nil
}

func (s *SessionService) expireComposing(room *Room, p *participant, gen int) {
	room.mu.Lock()
	defer s.release(room)
	if room.destroyed || p.composeGen != gen || !p.composing || room.find(p.id) != p {
		return
	}
	p.composeStop = nil
	p.clearComposing()
	room.broadcast(domain.ComposingChanged{Users: room.composingUsers()})
}

// SendChatMessage relays a trimmed message to the caller's room.
func (s *SessionService) SendChatMessage(_ context.Context, c Caller, text string) error {
	msg := strings.TrimSpace(text)
	if msg == "" || utf8.RuneCountInString(msg) > s.opts.ChatMaxLength {
		return domain.ErrInvalidMessage
	}
	room, p, err := s.lockCaller(c)
	if err != nil {
		return err
	}
	defer s.release(room)

	if p.clearComposing() {
		room.broadcast(domain.ComposingChanged{Users: room.composingUsers()})
	}
	room.broadcast(domain.ChatMessageSent{ChatMessage: domain.ChatMessage{
		User:    p.info(),
		Message: msg,
		SentAt:  s.opts.Now(),
	}})
	return nil
}

// lockCaller returns the caller's room locked, with the caller's participant record.
func (s *SessionService) lockCaller(c Caller) (*Room, *participant, error) {
	m, ok := s.membershipOf(c.Conn)
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	room, ok := s.rooms.Get(m.room)
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	room.mu.Lock()
	p := room.findByConn(c.Conn)
	if room.destroyed || p == nil {
		s.release(room)
		return nil, nil, domain.ErrRoomNotFound
	}
	return room, p, nil
}

// release publishes the room's pending events in order, unlocks it, then runs the
// I/O the operation queued: registry removal and final score commits.
func (s *SessionService) release(room *Room) {
	envs := room.outbox
	room.outbox = nil
	commits := room.commits
	room.commits = nil
	drop := room.dropped
	room.dropped = false

	s.bus.Publish(envs...)
	room.mu.Unlock()

	if drop {
		s.rooms.Delete(room.id)
	}
	s.commit(room.id, commits)
}

func (s *SessionService) commit(roomID domain.RoomID, commits []pointsCommit) {
	if len(commits) == 0 || s.users == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.CommitTimeout)
	defer cancel()
	for _, c := range commits {
		if _, err := s.users.CommitPoints(ctx, c.user, c.points); err != nil {
			s.log.Error("commit points failed",
				slog.String("room", string(roomID)),
				slog.String("user", string(c.user)),
				slog.Int("points", c.points),
				slog.Any("err", err),
			)
		}
	}
}

func (s *SessionService) destroyLocked(room *Room) {
	s.stopCountdownLocked(room)
	for _, p := range room.participants {
		p.clearComposing()
		s.forget(p.conn, room.id)
	}
	room.participants = nil
	room.responses = make(map[domain.UserID]response)
	room.destroyed = true
	room.dropped = true
	s.log.Info("room destroyed", slog.String("room", string(room.id)))
}

func (s *SessionService) membershipOf(conn fanout.Conn) (membership, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.conns[conn.ID()]
	return m, ok
}

func (s *SessionService) remember(conn fanout.Conn, room domain.RoomID, user domain.UserID) {
	s.mu.Lock()
	s.conns[conn.ID()] = membership{room: room, user: user}
	s.mu.Unlock()
}

// forget drops conn's membership only while it still points at room; a connection that
// has already moved on keeps its newer seat.
func (s *SessionService) forget(conn fanout.Conn, room domain.RoomID) {
	s.mu.Lock()
	if m, ok := s.conns[conn.ID()]; ok && m.room == room {
		delete(s.conns, conn.ID())
	}
	s.mu.Unlock()
}
