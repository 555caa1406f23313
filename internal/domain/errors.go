package domain

import "errors"

var (
	// ErrRoomNotFound is returned for unknown room ids or when the caller is in no room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when the non-owner participant cap is reached.
	ErrRoomFull = errors.New("room is full")
	// ErrRoomAlreadyStarted is returned when the room no longer accepts joins or starts.
	ErrRoomAlreadyStarted = errors.New("room is already started")
	// ErrRoomAlreadyEnded is returned when the room is finished.
	ErrRoomAlreadyEnded = errors.New("room is finished")
	// ErrPasswordRequired is returned when a protected room is joined without a password.
	ErrPasswordRequired = errors.New("room requires a password")
	// ErrInvalidPassword is returned when the supplied password does not match.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrUnauthorized is returned for owner-only actions or actions outside their phase.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidAnswer indicates a malformed answer for the live question.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrAlreadyAnswered indicates a duplicate submission for the live question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrInvalidTime indicates a negative add-time delta.
	ErrInvalidTime = errors.New("invalid time delta")
	// ErrInvalidMessage indicates an empty or oversized chat message.
	ErrInvalidMessage = errors.New("invalid chat message")
	// ErrInvalidOptions indicates unusable create-room settings.
	ErrInvalidOptions = errors.New("invalid room options")

	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound indicates an unknown account.
	ErrUserNotFound = errors.New("user not found")
	// ErrUnauthenticated is returned when no identity can be resolved for a connection.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ReasonFor maps an error onto the closed set of rejection reasons sent to a client.
// Validation failures map to "" and are dropped without notifying anyone.
func ReasonFor(err error) Reason {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAnswer),
		errors.Is(err, ErrAlreadyAnswered),
		errors.Is(err, ErrInvalidTime),
		errors.Is(err, ErrInvalidMessage):
		return ""
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrQuizNotFound):
		return ReasonRoomNotFound
	case errors.Is(err, ErrRoomFull):
		return ReasonRoomFull
	case errors.Is(err, ErrRoomAlreadyStarted):
		return ReasonAlreadyStarted
	case errors.Is(err, ErrRoomAlreadyEnded):
		return ReasonAlreadyEnded
	case errors.Is(err, ErrPasswordRequired):
		return ReasonPasswordRequired
	case errors.Is(err, ErrInvalidPassword):
		return ReasonInvalidPassword
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrUnauthenticated):
		return ReasonUnauthorized
	default:
		return ReasonUnknown
	}
}
