package chat

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	fulerrors "github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/folioai/chatgate/internal/assistant"
	apperrors "github.com/folioai/chatgate/internal/errors"
)

// History paging bounds.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// HistoryQuery selects a page of thread messages.
type HistoryQuery struct {
	Limit  int
	Before string
	After  string
	Order  assistant.Order
}

// ParseHistoryQuery reads limit, before, after and order from query values.
// A missing or unparsable limit becomes 20; values are clamped to [1, 100].
// Order is desc unless "asc" is given.
func ParseHistoryQuery(v url.Values) HistoryQuery {
	q := HistoryQuery{
		Limit:  DefaultHistoryLimit,
		Before: strings.TrimSpace(v.Get("before")),
		After:  strings.TrimSpace(v.Get("after")),
		Order:  assistant.OrderDesc,
	}

	if raw := strings.TrimSpace(v.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			q.Limit = n
		}
	}
	q.Limit = clamp(q.Limit, 1, MaxHistoryLimit)

	if strings.EqualFold(strings.TrimSpace(v.Get("order")), string(assistant.OrderAsc)) {
		q.Order = assistant.OrderAsc
	}
	return q
}

// HistoryMessage is one formatted thread message.
type HistoryMessage struct {
	ID        string            `json:"id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp string            `json:"timestamp"`
	Metadata  map[string]string `json:"metadata"`
}

// HistoryResponse is the GET /api/chat/history body.
type HistoryResponse struct {
	Messages  []HistoryMessage `json:"messages"`
	HasMore   bool             `json:"hasMore"`
	FirstID   *string          `json:"firstId"`
	LastID    *string          `json:"lastId"`
	Count     int              `json:"count"`
	Timestamp string           `json:"timestamp"`
}

// History lists a page of the shared thread.
func (s *Service) History(ctx context.Context, q HistoryQuery) (*HistoryResponse, *fulerrors.ErrorEnvelope) {
	if !s.keyConfigured() {
		return nil, apperrors.NewAPIKeyMissingError()
	}

	list, err := s.API.ListMessages(ctx, s.ThreadID, assistant.ListMessagesParams{
		Limit:  q.Limit,
		Order:  q.Order,
		Before: q.Before,
		After:  q.After,
	})
	if err != nil {
		logError("Failed to fetch chat history", zap.Error(err))
		return nil, historyError(ctx, err)
	}

	resp := &HistoryResponse{
		Messages:  make([]HistoryMessage, 0, len(list.Data)),
		HasMore:   list.HasMore,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	}
	for i := range list.Data {
		resp.Messages = append(resp.Messages, FormatMessage(&list.Data[i]))
	}
	resp.Count = len(resp.Messages)
	if resp.Count > 0 {
		first := resp.Messages[0].ID
		last := resp.Messages[resp.Count-1].ID
		resp.FirstID, resp.LastID = &first, &last
	}
	return resp, nil
}

// FormatMessage flattens a thread message. Non-text first blocks yield empty content.
func FormatMessage(m *assistant.Message) HistoryMessage {
	text, _ := m.FirstText()
	return HistoryMessage{
		ID:        m.ID,
		Role:      m.Role,
		Content:   text,
		Timestamp: m.Created().Format(time.RFC3339Nano),
		Metadata:  m.Metadata,
	}
}

// historyError keeps classified upstream codes and reports everything else as
// FETCH_HISTORY_ERROR.
func historyError(ctx context.Context, err error) *fulerrors.ErrorEnvelope {
	upstream := assistant.MapUpstreamError(err)
	if upstream.Kind == assistant.UpstreamUnknown {
		return apperrors.WrapFetchHistory(ctx, err, "Failed to fetch chat history")
	}
	return Classify(ctx, err, 0)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// ClearHistory reports that the shared thread cannot be cleared in place.
// A missing API key is reported first.
func (s *Service) ClearHistory() *fulerrors.ErrorEnvelope {
	if !s.keyConfigured() {
		return apperrors.NewAPIKeyMissingError()
	}
	return apperrors.NewClearHistoryError()
}
