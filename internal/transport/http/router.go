package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/domain"
)

// RoomsHandler serves the REST side of rooms: creation and search.
type RoomsHandler struct {
	service  *app.SessionService
	resolver auth.Resolver
	log      *slog.Logger
}

func NewRoomsHandler(service *app.SessionService, resolver auth.Resolver, logger *slog.Logger) *RoomsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoomsHandler{service: service, resolver: resolver, log: logger}
}

// NewRouter mounts every HTTP endpoint of the service.
func NewRouter(rooms *RoomsHandler, ws *WSHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/quizzes/search", rooms.Search).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/quizzes/{id}/play", rooms.Play).Methods(http.MethodPost)
	r.HandleFunc("/ws", ws.ServeWS)
	return r
}

// Play creates a room for the quiz in the path. The body carries the room options and may be empty.
func (h *RoomsHandler) Play(w http.ResponseWriter, r *http.Request) {
	if _, err := h.resolver.Resolve(r); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	quizID := domain.QuizID(mux.Vars(r)["id"])

	var opts domain.CreateRoomOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid options")
		return
	}

	roomID, err := h.service.CreateRoom(r.Context(), quizID, opts)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{"roomId": roomID})
	case errors.Is(err, domain.ErrInvalidOptions):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrQuizNotFound):
		writeError(w, http.StatusNotFound, "quiz not found")
	default:
		h.log.Error("create room", slog.String("quiz", string(quizID)), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "could not create room")
	}
}

// Search returns pending rooms close to the search query parameter.
func (h *RoomsHandler) Search(w http.ResponseWriter, r *http.Request) {
	rooms := h.service.SearchRooms(r.Context(), r.URL.Query().Get("search"))
	if rooms == nil {
		rooms = []domain.RoomSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
