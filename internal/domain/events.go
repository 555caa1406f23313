package domain

// Event is the closed set of notifications the session core emits. Kind is the wire name.
type Event interface {
	Kind() string
}

// Phase names the interval a countdown tick belongs to.
type Phase string

const (
	PhasePreStart Phase = "pre-start"
	PhaseQuestion Phase = "question"
	PhaseResults  Phase = "results"
)

// Reason is a rejection sent back to the single connection that triggered it.
type Reason string

const (
	ReasonRoomNotFound     Reason = "room-not-found"
	ReasonRoomFull         Reason = "room-full"
	ReasonAlreadyStarted   Reason = "already-started"
	ReasonAlreadyEnded     Reason = "already-finished"
	ReasonPasswordRequired Reason = "require-password"
	ReasonInvalidPassword  Reason = "invalid-password"
	ReasonUnauthorized     Reason = "unauthorized"
	ReasonUnknown          Reason = "unknown-error"
)

// ChoiceView is a choice as shown to a client. Correct is only set for the owner
// or once the response window has closed.
type ChoiceView struct {
	ID      ChoiceID `json:"id"`
	Choice  string   `json:"choice"`
	Correct *bool    `json:"correct,omitempty"`
}

// QuestionView is a question as shown to a client.
type QuestionView struct {
	ID       QuestionID   `json:"id"`
	Question string       `json:"question"`
	Type     QuestionType `json:"type"`
	Duration int          `json:"duration"`
	Position int          `json:"position"`
	Total    int          `json:"total"`
	Choices  []ChoiceView `json:"choices"`
}

// NewQuestionView projects q, revealing correctness only when withAnswers is set.
func NewQuestionView(q Question, position, total int, withAnswers bool) QuestionView {
	choices := make([]ChoiceView, len(q.Choices))
	for i, c := range q.Choices {
		choices[i] = ChoiceView{ID: c.ID, Choice: c.Choice}
		if withAnswers {
			correct := c.Correct
			choices[i].Correct = &correct
		}
	}
	return QuestionView{
		ID:       q.ID,
		Question: q.Question,
		Type:     q.Type,
		Duration: q.Duration,
		Position: position,
		Total:    total,
		Choices:  choices,
	}
}

// QuizView is the room snapshot pushed to a joining connection.
type QuizView struct {
	ID            QuizID         `json:"id"`
	Name          string         `json:"name"`
	Author        Author         `json:"author"`
	QuestionCount int            `json:"questionCount"`
	Questions     []QuestionView `json:"questions,omitempty"`
}

type RoomInfo struct {
	RoomID  RoomID     `json:"roomId"`
	Status  RoomStatus `json:"status"`
	IsOwner bool       `json:"isOwner"`
	Quiz    QuizView   `json:"quiz"`
	Users   []UserInfo `json:"users"`
}

type UserJoined struct {
	User  UserInfo   `json:"user"`
	Users []UserInfo `json:"users"`
}

type UserLeft struct {
	User  UserInfo   `json:"user"`
	Users []UserInfo `json:"users"`
}

// CountdownTick is emitted once per second for every phase.
type CountdownTick struct {
	Phase Phase `json:"phase"`
	Count int   `json:"count"`
}

type SessionStarted struct{}

type QuestionRevealed struct {
	QuestionView
}

// QuestionEnded closes the response window and reveals the correct choices.
type QuestionEnded struct {
	QuestionID     QuestionID `json:"questionId"`
	CorrectChoices []ChoiceID `json:"correctChoices"`
}

// AnswerAccepted acknowledges a recorded answer to its submitter.
type AnswerAccepted struct {
	QuestionID QuestionID `json:"questionId"`
	Answers    []ChoiceID `json:"answers"`
}

// ResponsePercentage counts how many participants picked each choice.
type ResponsePercentage struct {
	QuestionID QuestionID       `json:"questionId"`
	Total      int              `json:"total"`
	Answered   int              `json:"answered"`
	Counts     map[ChoiceID]int `json:"counts"`
}

type ScoreUpdate struct {
	Users []UserInfo `json:"users"`
}

type TimeAdded struct {
	Time int `json:"time"`
}

type FinishedQuestions struct {
	Users []UserInfo `json:"users"`
}

type SessionEnded struct{}

type ChatMessageSent struct {
	ChatMessage
}

type ComposingChanged struct {
	Users []UserInfo `json:"users"`
}

// Rejection reports a refused action to its requester only.
type Rejection struct {
	Reason  Reason `json:"-"`
	Message string `json:"message,omitempty"`
}

func (RoomInfo) Kind() string           { return "room-info" }
func (UserJoined) Kind() string         { return "user-joined" }
func (UserLeft) Kind() string           { return "user-left" }
func (CountdownTick) Kind() string      { return "countdown" }
func (SessionStarted) Kind() string     { return "start-session" }
func (QuestionRevealed) Kind() string   { return "question" }
func (QuestionEnded) Kind() string      { return "question-countdown-end" }
func (AnswerAccepted) Kind() string     { return "user-response" }
func (ResponsePercentage) Kind() string { return "user-response-result" }
func (ScoreUpdate) Kind() string        { return "user-points" }
func (TimeAdded) Kind() string          { return "question-add-time" }
func (FinishedQuestions) Kind() string  { return "finished-questions" }
func (SessionEnded) Kind() string       { return "session-ended" }
func (ChatMessageSent) Kind() string    { return "chat-message" }
func (ComposingChanged) Kind() string   { return "is-composing" }
func (r Rejection) Kind() string        { return string(r.Reason) }
