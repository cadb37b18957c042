package chat

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioai/chatgate/internal/assistant"
	apperrors "github.com/folioai/chatgate/internal/errors"
)

func TestParseHistoryQuery(t *testing.T) {
	cases := []struct {
		raw   string
		limit int
		order assistant.Order
	}{
		{"", 20, assistant.OrderDesc},
		{"limit=5", 5, assistant.OrderDesc},
		{"limit=500", 100, assistant.OrderDesc},
		{"limit=0", 1, assistant.OrderDesc},
		{"limit=-4", 1, assistant.OrderDesc},
		{"limit=abc", 20, assistant.OrderDesc},
		{"order=asc", 20, assistant.OrderAsc},
		{"order=sideways", 20, assistant.OrderDesc},
	}

	for _, tc := range cases {
		v, err := url.ParseQuery(tc.raw)
		require.NoError(t, err)
		q := ParseHistoryQuery(v)
		assert.Equal(t, tc.limit, q.Limit, tc.raw)
		assert.Equal(t, tc.order, q.Order, tc.raw)
	}

	q := ParseHistoryQuery(url.Values{"before": {"msg_9"}, "after": {" msg_1 "}})
	assert.Equal(t, "msg_9", q.Before)
	assert.Equal(t, "msg_1", q.After)
}

func TestHistoryFormatsMessages(t *testing.T) {
	f := newFixture()
	image := assistant.Message{
		ID:        "msg_img",
		Role:      assistant.RoleAssistant,
		CreatedAt: 1760875100,
		Content:   []assistant.ContentBlock{{Type: "image_file"}},
		Metadata:  map[string]string{"userId": "u"},
	}
	f.api.messages = &assistant.MessageList{
		Data:    []assistant.Message{*textMessage("msg_2", assistant.RoleAssistant, "hi there"), image},
		HasMore: true,
	}

	resp, env := f.svc.History(context.Background(), HistoryQuery{Limit: 2, Order: assistant.OrderDesc, Before: "msg_3"})
	require.Nil(t, env)

	require.Len(t, f.api.listParams, 1)
	assert.Equal(t, assistant.ListMessagesParams{Limit: 2, Order: assistant.OrderDesc, Before: "msg_3"}, f.api.listParams[0])

	assert.Equal(t, 2, resp.Count)
	assert.True(t, resp.HasMore)
	require.NotNil(t, resp.FirstID)
	require.NotNil(t, resp.LastID)
	assert.Equal(t, "msg_2", *resp.FirstID)
	assert.Equal(t, "msg_img", *resp.LastID)

	assert.Equal(t, "hi there", resp.Messages[0].Content)
	assert.Equal(t, "2025-10-19T12:00:00Z", resp.Messages[0].Timestamp)
	assert.Equal(t, "", resp.Messages[1].Content)
	assert.Equal(t, "u", resp.Messages[1].Metadata["userId"])
}

func TestHistoryEmptyThread(t *testing.T) {
	f := newFixture()
	resp, env := f.svc.History(context.Background(), HistoryQuery{Limit: 20, Order: assistant.OrderDesc})
	require.Nil(t, env)
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Messages)
	assert.Nil(t, resp.FirstID)
	assert.Nil(t, resp.LastID)
}

func TestHistoryErrors(t *testing.T) {
	f := newFixture()
	f.api.listErr = errors.New("connection reset")
	_, env := f.svc.History(context.Background(), HistoryQuery{Limit: 20})
	require.NotNil(t, env)
	assert.Equal(t, apperrors.CodeFetchHistory, env.Code)

	f.api.listErr = &assistant.APIError{StatusCode: 401, Type: "authentication_error"}
	_, env = f.svc.History(context.Background(), HistoryQuery{Limit: 20})
	require.NotNil(t, env)
	assert.Equal(t, apperrors.CodeUpstreamAuth, env.Code)

	f.hasKey = false
	_, env = f.svc.History(context.Background(), HistoryQuery{Limit: 20})
	require.NotNil(t, env)
	assert.Equal(t, apperrors.CodeAPIKeyMissing, env.Code)
}

func TestClearHistory(t *testing.T) {
	f := newFixture()
	assert.Equal(t, apperrors.CodeClearHistory, f.svc.ClearHistory().Code)

	f.hasKey = false
	assert.Equal(t, apperrors.CodeAPIKeyMissing, f.svc.ClearHistory().Code)
}
