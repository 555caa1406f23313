package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/domain"
)

// Users resolves the account behind an authenticated identity.
type Users interface {
	FindUser(ctx context.Context, id domain.UserID) (domain.User, error)
}

type WSHandler struct {
	service  *app.SessionService
	resolver auth.Resolver
	users    Users
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewWSHandler(service *app.SessionService, resolver auth.Resolver, users Users, origins []string, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service:  service,
		resolver: resolver,
		users:    users,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(origins),
		},
	}
}

// inboundMessage is a client frame: {"event": "...", ...fields}.
type inboundMessage struct {
	Event      string            `json:"event"`
	RoomID     domain.RoomID     `json:"roomId"`
	Password   string            `json:"password"`
	QuestionID domain.QuestionID `json:"questionId"`
	Answers    []domain.ChoiceID `json:"answers"`
	Time       int               `json:"time"`
	Message    string            `json:"message"`
}

// ServeWS authenticates the request, upgrades it and pumps client frames into the session service.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, err := h.resolver.Resolve(r)
	if err != nil {
		if !errors.Is(err, domain.ErrUnauthenticated) {
			h.log.Error("resolve identity", slog.Any("err", err))
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := h.users.FindUser(r.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrUserNotFound) {
			status = http.StatusUnauthorized
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", slog.Any("err", err))
		return
	}

	conn := newWSConn(ws, h.log)
	caller := app.Caller{User: user, Conn: conn}
	go conn.writePump()
	defer func() {
		h.service.Disconnect(conn)
		conn.Close()
		<-conn.done
	}()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	log := h.log.With(slog.String("user", string(user.ID)), slog.String("conn", conn.ID()))
	log.Debug("ws connected")
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("ws read failed", slog.Any("err", err))
			}
			return
		}
		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug("malformed frame", slog.Any("err", err))
			continue
		}
		h.dispatch(r.Context(), caller, msg, log)
	}
}

// dispatch runs one client action. Rejections go back to the calling connection only.
func (h *WSHandler) dispatch(ctx context.Context, c app.Caller, msg inboundMessage, log *slog.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("event handler panicked", slog.String("event", msg.Event), slog.Any("panic", rec))
			h.reject(c, domain.ReasonUnknown)
		}
	}()

	var err error
	switch msg.Event {
	case "join-room":
		err = h.service.Join(ctx, c, msg.RoomID, msg.Password)
	case "leave-room":
		err = h.service.Leave(ctx, c)
	case "start-session":
		err = h.service.StartSession(ctx, c)
	case "end-session":
		err = h.service.EndSession(ctx, c)
	case "user-response":
		err = h.service.SubmitAnswer(ctx, c, msg.QuestionID, msg.Answers)
	case "question-add-time":
		err = h.service.AddTime(ctx, c, msg.Time)
	case "is-composing":
		err = h.service.Compose(ctx, c)
	case "composing-end":
		err = h.service.StopComposing(ctx, c)
	case "chat-message":
		err = h.service.SendChatMessage(ctx, c, msg.Message)
	default:
		log.Debug("unknown event", slog.String("event", msg.Event))
		return
	}
	if err == nil {
		return
	}

	reason := domain.ReasonFor(err)
	attrs := []any{slog.String("event", msg.Event), slog.Any("err", err)}
	switch reason {
	case "":
		log.Debug("event dropped", attrs...)
		return
	case domain.ReasonUnknown:
		log.Error("event failed", attrs...)
	default:
		log.Debug("event rejected", append(attrs, slog.String("reason", string(reason)))...)
	}
	h.reject(c, reason)
}

func (h *WSHandler) reject(c app.Caller, reason domain.Reason) {
	_ = c.Conn.Send(domain.Rejection{Reason: reason, Message: rejectionMessage(reason)})
}

func rejectionMessage(reason domain.Reason) string {
	switch reason {
	case domain.ReasonRoomNotFound:
		return "Room not found"
	case domain.ReasonRoomFull:
		return "Room is full"
	case domain.ReasonAlreadyStarted:
		return "Session already started"
	case domain.ReasonAlreadyEnded:
		return "Session already finished"
	case domain.ReasonPasswordRequired:
		return "Password required"
	case domain.ReasonInvalidPassword:
		return "Invalid password"
	case domain.ReasonUnauthorized:
		return "Unauthorized"
	default:
		return fmt.Sprintf("Unexpected error (%s)", reason)
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
