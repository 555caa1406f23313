package domain

import (
	"time"

	"github.com/google/uuid"
)

// Distinct id types keep room, user, quiz, question and choice identifiers from mixing.
type (
	RoomID     string
	UserID     string
	QuizID     string
	QuestionID string
	ChoiceID   string
)

// NewRoomID generates an opaque room identifier.
func NewRoomID() RoomID {
	return RoomID(uuid.NewString())
}

// QuestionType decides the accepted answer shape.
type QuestionType string

const (
	QuestionSingle   QuestionType = "SINGLE"
	QuestionBinary   QuestionType = "BINARY"
	QuestionMultiple QuestionType = "MULTIPLE"
)

// User is the durable account record as seen by the session core.
type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}

// Choice is one possible answer of a question.
type Choice struct {
	ID      ChoiceID `json:"id"`
	Choice  string   `json:"choice"`
	Correct bool     `json:"correct"`
}

// Question is a timed quiz question. Duration is in seconds.
type Question struct {
	ID       QuestionID   `json:"id"`
	Question string       `json:"question"`
	Type     QuestionType `json:"type"`
	Duration int          `json:"duration"`
	Position int          `json:"position"`
	Choices  []Choice     `json:"choices"`
}

// HasChoice reports whether id belongs to the question.
func (q Question) HasChoice(id ChoiceID) bool {
	for _, c := range q.Choices {
		if c.ID == id {
			return true
		}
	}
	return false
}

// CorrectChoices returns the ids flagged as correct, in choice order.
func (q Question) CorrectChoices() []ChoiceID {
	ids := make([]ChoiceID, 0, len(q.Choices))
	for _, c := range q.Choices {
		if c.Correct {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Author identifies the owner of a quiz.
type Author struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

// Quiz is a quiz definition with its ordered questions.
type Quiz struct {
	ID        QuizID     `json:"id"`
	Name      string     `json:"name"`
	Author    Author     `json:"author"`
	Questions []Question `json:"questions"`
}

// Clone returns a deep copy so later edits of the source never leak into a live room.
func (q Quiz) Clone() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Choices = append([]Choice(nil), question.Choices...)
		out.Questions[i] = question
	}
	return out
}

// RoomStatus is monotonic: Pending -> Starting -> Started -> Ended.
type RoomStatus string

const (
	StatusPending  RoomStatus = "pending"
	StatusStarting RoomStatus = "starting"
	StatusStarted  RoomStatus = "started"
	StatusEnded    RoomStatus = "ended"
)

// CreateRoomOptions are the owner-chosen settings of a new room.
type CreateRoomOptions struct {
	SessionPassword struct {
		Enable   bool   `json:"enable"`
		Password string `json:"password"`
	} `json:"sessionPassword"`
	RandomizeQuestions bool `json:"randomizeQuestions"`
	UserCountLimit     struct {
		Enable bool `json:"enable"`
		Limit  int  `json:"limit"`
	} `json:"userCountLimit"`
}

// UserInfo is a roster entry.
type UserInfo struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}

// RoomSummary is a room search hit.
type RoomSummary struct {
	ID   RoomID `json:"id"`
	Name string `json:"name"`
}

// ChatMessage is a message relayed to a room.
type ChatMessage struct {
	User    UserInfo  `json:"user"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}
