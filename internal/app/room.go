package app

import (
	"sort"
	"sync"
	"time"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/fanout"
)

// Room is an in-memory quiz session. Everything below mu is guarded by it; the fields
// above are fixed at creation.
type Room struct {
	id           domain.RoomID
	quiz         domain.Quiz
	hashedSecret string
	limit        int
	createdAt    time.Time

	mu           sync.Mutex
	status       domain.RoomStatus
	phase        domain.Phase
	index        int
	countdown    *Countdown
	participants []*participant
	responses    map[domain.UserID]response
	nextSeq      int
	destroyed    bool

	outbox  []fanout.Envelope
	commits []pointsCommit
	dropped bool
}

func newRoom(id domain.RoomID, quiz domain.Quiz, hashedSecret string, limit int, now time.Time) *Room {
	return &Room{
		id:           id,
		quiz:         quiz,
		hashedSecret: hashedSecret,
		limit:        limit,
		createdAt:    now,
		status:       domain.StatusPending,
		responses:    make(map[domain.UserID]response),
	}
}

// NewRoom is exported for registry implementations that need to seed rooms.
func NewRoom(id domain.RoomID, quiz domain.Quiz, now time.Time) *Room {
	return newRoom(id, quiz, "", 0, now)
}

func (r *Room) ID() domain.RoomID { return r.id }

// QuizName is the name of the quiz snapshot.
func (r *Room) QuizName() string { return r.quiz.Name }

// Owner is the author of the quiz snapshot.
func (r *Room) Owner() domain.Author { return r.quiz.Author }

func (r *Room) CreatedAt() time.Time { return r.createdAt }

func (r *Room) Status() domain.RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// QuestionIndex is the cursor into the room's question list.
func (r *Room) QuestionIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

// ParticipantCount includes the owner when connected.
func (r *Room) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

func (r *Room) isOwner(id domain.UserID) bool {
	return r.quiz.Author.ID == id
}

func (r *Room) find(id domain.UserID) *participant {
	for _, p := range r.participants {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (r *Room) findByConn(conn fanout.Conn) *participant {
	for _, p := range r.participants {
		if p.conn.ID() == conn.ID() {
			return p
		}
	}
	return nil
}

func (r *Room) remove(target *participant) {
	for i, p := range r.participants {
		if p == target {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			return
		}
	}
}

// nonOwnerCount counts the seats taken by anyone but the owner and the given identity.
func (r *Room) nonOwnerCount(except domain.UserID) int {
	n := 0
	for _, p := range r.participants {
		if r.isOwner(p.id) || p.id == except {
			continue
		}
		n++
	}
	return n
}

// admitLocked applies the capacity and status checks of a join. An ended room admits
// nobody; otherwise the owner skips the remaining checks.
func (r *Room) admitLocked(user domain.UserID) error {
	if r.destroyed {
		return domain.ErrRoomNotFound
	}
	if r.status == domain.StatusEnded {
		return domain.ErrRoomAlreadyEnded
	}
	if r.isOwner(user) {
		return nil
	}
	if r.limit > 0 && r.nonOwnerCount(user) >= r.limit {
		return domain.ErrRoomFull
	}
	if r.status != domain.StatusPending {
		return domain.ErrRoomAlreadyStarted
	}
	return nil
}

func (r *Room) currentQuestion() (domain.Question, bool) {
	if r.index < 0 || r.index >= len(r.quiz.Questions) {
		return domain.Question{}, false
	}
	return r.quiz.Questions[r.index], true
}

// roster lists participants in join order.
func (r *Room) roster() []domain.UserInfo {
	users := make([]domain.UserInfo, len(r.participants))
	for i, p := range r.participants {
		users[i] = p.info()
	}
	return users
}

// leaderboard orders by score descending, then join order.
func (r *Room) leaderboard() []domain.UserInfo {
	ordered := append([]*participant(nil), r.participants...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}
		return ordered[i].seq < ordered[j].seq
	})
	users := make([]domain.UserInfo, len(ordered))
	for i, p := range ordered {
		users[i] = p.info()
	}
	return users
}

func (r *Room) composingUsers() []domain.UserInfo {
	users := make([]domain.UserInfo, 0)
	for _, p := range r.participants {
		if p.composing {
			users = append(users, p.info())
		}
	}
	return users
}

func (r *Room) conns(keep func(*participant) bool) []fanout.Conn {
	conns := make([]fanout.Conn, 0, len(r.participants))
	for _, p := range r.participants {
		if keep == nil || keep(p) {
			conns = append(conns, p.conn)
		}
	}
	return conns
}

func (r *Room) broadcast(ev domain.Event) {
	r.outbox = append(r.outbox, fanout.Envelope{Room: r.id, Event: ev, To: r.conns(nil), Broadcast: true})
}

func (r *Room) sendTo(ev domain.Event, to ...fanout.Conn) {
	if len(to) == 0 {
		return
	}
	r.outbox = append(r.outbox, fanout.Envelope{Room: r.id, Event: ev, To: to})
}

func (r *Room) info(forOwner bool) domain.RoomInfo {
	view := domain.QuizView{
		ID:            r.quiz.ID,
		Name:          r.quiz.Name,
		Author:        r.quiz.Author,
		QuestionCount: len(r.quiz.Questions),
	}
	if forOwner {
		view.Questions = make([]domain.QuestionView, len(r.quiz.Questions))
		for i, q := range r.quiz.Questions {
			view.Questions[i] = domain.NewQuestionView(q, i, len(r.quiz.Questions), true)
		}
	}
	return domain.RoomInfo{
		RoomID:  r.id,
		Status:  r.status,
		IsOwner: forOwner,
		Quiz:    view,
		Users:   r.roster(),
	}
}

// percentage counts the recorded answers per choice of q.
func (r *Room) percentage(q domain.Question) domain.ResponsePercentage {
	counts := make(map[domain.ChoiceID]int, len(q.Choices))
	for _, c := range q.Choices {
		counts[c.ID] = 0
	}
	for _, resp := range r.responses {
		for _, id := range resp.answers {
			counts[id]++
		}
	}
	return domain.ResponsePercentage{
		QuestionID: q.ID,
		Total:      len(r.participants),
		Answered:   len(r.responses),
		Counts:     counts,
	}
}

func (r *Room) snapshotScores() []pointsCommit {
	commits := make([]pointsCommit, len(r.participants))
	for i, p := range r.participants {
		commits[i] = pointsCommit{user: p.id, points: p.score}
	}
	return commits
}
