package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/folioai/chatgate/internal/chat"
	apperrors "github.com/folioai/chatgate/internal/errors"
	"github.com/folioai/chatgate/internal/identity"
)

// MaxChatBodyBytes bounds the POST /api/chat body read.
const MaxChatBodyBytes = 1 << 20

// ChatHandler serves the /api/chat endpoints.
type ChatHandler struct {
	Service *chat.Service
}

// NewChatHandler wires handlers to a chat service.
func NewChatHandler(svc *chat.Service) *ChatHandler {
	return &ChatHandler{Service: svc}
}

func (h *ChatHandler) messageLimit() int {
	if h.Service.MaxMessageLength > 0 {
		return h.Service.MaxMessageLength
	}
	return chat.DefaultMaxMessageLength
}

// PostChat admits, validates and answers one chat message.
//
// Quotas are consumed before the body is read, so malformed requests still
// count against the caller.
func (h *ChatHandler) PostChat(w http.ResponseWriter, r *http.Request) {
	id := identity.FromRequest(r)

	adm, env := h.Service.Gate.Admit(r.Context(), id)
	if env != nil {
		setDenialHeaders(w.Header(), adm)
		respondWithError(w, r, env)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxChatBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, r, apperrors.NewMessageTooLongError(h.messageLimit()))
			return
		}
		respondWithError(w, r, apperrors.NewInvalidJSONError(err))
		return
	}

	resp, env := h.Service.Chat(r.Context(), body)
	if env != nil {
		respondWithError(w, r, env)
		return
	}

	setRateHeaders(w.Header(), adm.Rate)
	setQuestionHeaders(w.Header(), adm.Question)
	writeJSON(w, http.StatusOK, resp)
}

// GetThreadHealth reports whether the shared thread is reachable.
func (h *ChatHandler) GetThreadHealth(w http.ResponseWriter, r *http.Request) {
	health, env := h.Service.ThreadHealth(r.Context())
	if env != nil {
		respondWithError(w, r, env)
		return
	}
	writeJSON(w, http.StatusOK, health)
}

// GetStatus reports quotas for the caller and upstream reachability.
func (h *ChatHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	report, status := h.Service.Status(r.Context(), identity.FromRequest(r))

	hdr := w.Header()
	hdr.Set(HeaderRateLimit, strconv.Itoa(report.RateLimit.Limit))
	hdr.Set(HeaderRateRemaining, strconv.Itoa(report.RateLimit.Remaining))
	hdr.Set(HeaderQuestionLimit, strconv.Itoa(report.QuestionLimit.Limit))
	hdr.Set(HeaderQuestionsRemaining, strconv.Itoa(report.QuestionLimit.Remaining))
	hdr.Set(HeaderQuestionsUsed, strconv.Itoa(report.QuestionLimit.Used))

	writeJSON(w, status, report)
}

// GetHistory returns a page of the shared thread.
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	resp, env := h.Service.History(r.Context(), chat.ParseHistoryQuery(r.URL.Query()))
	if env != nil {
		respondWithError(w, r, env)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteHistory always refuses; the thread cannot be cleared in place.
func (h *ChatHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, h.Service.ClearHistory())
}
