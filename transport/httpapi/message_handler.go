package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"group-chat/auth"
	"group-chat/domain"
	"group-chat/search"
	"group-chat/services"
)

const defaultSearchLimit = 20

type MessageHandler struct {
	chat services.IChatService
	log  *slog.Logger
}

func NewMessageHandler(chat services.IChatService, log *slog.Logger) *MessageHandler {
	return &MessageHandler{chat: chat, log: log}
}

type messageResponse struct {
	MessageID string         `json:"messageId"`
	GroupID   string         `json:"groupId"`
	UserID    string         `json:"userId"`
	Message   domain.Payload `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
}

func toMessageResponses(messages []domain.Message) []messageResponse {
	return lo.Map(messages, func(m domain.Message, _ int) messageResponse {
		return messageResponse{
			MessageID: m.ID.String(),
			GroupID:   string(m.GroupID),
			UserID:    m.AuthorID,
			Message:   m.Payload,
			Timestamp: m.CreatedAt,
		}
	})
}

// Send appends a message to the group's log and echoes it back with its
// store-assigned timestamp. Live delivery to other sessions has already
// been attempted by the time this returns; its outcome never changes the
// response.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	groupID := domain.GroupID(chi.URLParam(r, "groupID"))

	var payload domain.Payload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, h.log, err)
		return
	}

	message, err := h.chat.Send(r.Context(), groupID, userID, payload)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageResponses([]domain.Message{message})[0])
}

// History returns the full history of every group the caller belongs to,
// newest first, regardless of live-session state.
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	messages, err := h.chat.History(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": toMessageResponses(messages)})
}

// GroupHistory pages through one group's log using an opaque cursor.
func (h *MessageHandler) GroupHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	groupID := domain.GroupID(chi.URLParam(r, "groupID"))

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, nextCursor, err := h.chat.GroupHistory(r.Context(), userID, groupID, cursor)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	response := map[string]any{"messages": toMessageResponses(messages)}
	if nextCursor != nil {
		response["cursor"] = *nextCursor
	}
	writeJSON(w, http.StatusOK, response)
}

// Search runs a full-text query over the caller's message history.
func (h *MessageHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	hits, err := h.chat.Search(r.Context(), userID, r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
}
