package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioai/chatgate/internal/assistant"
	"github.com/folioai/chatgate/internal/chat"
	"github.com/folioai/chatgate/internal/limiter"
	"github.com/folioai/chatgate/internal/observability"
	"github.com/folioai/chatgate/internal/server"
)

// fakeUpstream mimics the Assistants v2 endpoints the client calls.
type fakeUpstream struct {
	mu       sync.Mutex
	messages []assistant.Message
	polls    atomic.Int32
	// pendingPolls is how many GetRun calls report in_progress before completion.
	pendingPolls int32
	seq          atomic.Int32
}

func (f *fakeUpstream) router(t *testing.T) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
			assert.Equal(t, "assistants=v2", req.Header.Get("OpenAI-Beta"))
			next.ServeHTTP(w, req)
		})
	})

	r.Post("/threads/{thread}/messages", func(w http.ResponseWriter, req *http.Request) {
		var in assistant.CreateMessageRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&in))
		msg := f.add(assistant.RoleUser, in.Content, in.Metadata)
		writeUpstream(w, http.StatusOK, msg)
	})
	r.Get("/threads/{thread}/messages", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		data := make([]assistant.Message, 0, len(f.messages))
		for i := len(f.messages) - 1; i >= 0; i-- {
			data = append(data, f.messages[i])
		}
		f.mu.Unlock()
		if req.URL.Query().Get("limit") == "1" && len(data) > 1 {
			data = data[:1]
		}
		writeUpstream(w, http.StatusOK, assistant.MessageList{Data: data})
	})
	r.Post("/threads/{thread}/runs", func(w http.ResponseWriter, req *http.Request) {
		var in assistant.CreateRunRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&in))
		assert.Equal(t, "asst_it", in.AssistantID)
		writeUpstream(w, http.StatusOK, assistant.Run{ID: "run_it", Status: assistant.RunQueued})
	})
	r.Get("/threads/{thread}/runs/{run}", func(w http.ResponseWriter, req *http.Request) {
		if f.polls.Add(1) <= f.pendingPolls {
			writeUpstream(w, http.StatusOK, assistant.Run{ID: "run_it", Status: assistant.RunInProgress})
			return
		}
		f.add(assistant.RoleAssistant, "Chào bạn 👋", nil)
		writeUpstream(w, http.StatusOK, assistant.Run{ID: "run_it", Status: assistant.RunCompleted})
	})
	r.Get("/threads/{thread}", func(w http.ResponseWriter, req *http.Request) {
		writeUpstream(w, http.StatusOK, assistant.Thread{ID: chi.URLParam(req, "thread"), CreatedAt: 1700000000})
	})
	r.Get("/assistants/{id}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") != "asst_it" {
			writeUpstream(w, http.StatusNotFound, map[string]any{
				"error": map[string]string{"type": "invalid_request_error", "message": "No assistant found"},
			})
			return
		}
		writeUpstream(w, http.StatusOK, assistant.Assistant{ID: "asst_it", Model: "gpt-4o", CreatedAt: 1700000000})
	})
	return r
}

func (f *fakeUpstream) add(role, text string, meta map[string]string) assistant.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := assistant.Message{
		ID:        fmt.Sprintf("msg_%d", f.seq.Add(1)),
		Role:      role,
		CreatedAt: time.Now().Unix(),
		Metadata:  meta,
		Content: []assistant.ContentBlock{
			{Type: assistant.ContentTypeText, Text: &assistant.TextValue{Value: text}},
		},
	}
	f.messages = append(f.messages, msg)
	return msg
}

func writeUpstream(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newChatStack(t *testing.T, upstream *fakeUpstream, assistantID string, rateCap int) server.Option {
	t.Helper()
	return server.WithChat(newChatService(t, upstream, assistantID, rateCap))
}

func newChatService(t *testing.T, upstream *fakeUpstream, assistantID string, rateCap int) *chat.Service {
	t.Helper()

	up := httptest.NewServer(upstream.router(t))
	t.Cleanup(up.Close)

	client := assistant.NewClient(up.URL, "sk-test")
	client.Timeout = 2 * time.Second

	recorder := limiter.NewMemoryRecorder()
	svc := &chat.Service{
		API: client,
		Orchestrator: &assistant.Orchestrator{
			API:          client,
			ThreadID:     "thread_it",
			AssistantID:  assistantID,
			Instructions: "be brief",
			PollInterval: 5 * time.Millisecond,
			MaxAttempts:  60,
		},
		Gate: &chat.Gate{
			Rate:     limiter.NewStore("rate", rateCap, time.Minute),
			Question: limiter.NewStore("question", 10, 24*time.Hour),
			Recorder: recorder,
		},
		APIKeyConfigured: client.Configured,
		Stats:            recorder,
		ThreadID:         "thread_it",
		AssistantID:      assistantID,
		MaxMessageLength: chat.DefaultMaxMessageLength,
		Environment:      "test",
	}
	return svc
}

// visitorXFF puts every request of a test behind the same client address.
const visitorXFF = "203.0.113.50, 10.0.0.1"

func postChat(t *testing.T, client *http.Client, base, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, base+"/api/chat", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", visitorXFF)
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func getAsVisitor(t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("X-Forwarded-For", visitorXFF)
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func fetchStatus(t *testing.T, client *http.Client, base string) (int, chat.StatusReport) {
	t.Helper()
	resp := getAsVisitor(t, client, base+"/api/chat/status")
	var report chat.StatusReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.NoError(t, resp.Body.Close())
	return resp.StatusCode, report
}

func TestChatFlow_EndToEnd(t *testing.T) {
	observability.InitServerLogger("test", "error")

	upstream := &fakeUpstream{pendingPolls: 2}
	ts, client := newTestServer(t, nil,
		newChatStack(t, upstream, "asst_it", 30),
		server.WithAPIQuota(limiter.NewStore("api", 100, time.Minute)))

	resp := postChat(t, client, ts.URL, `{"message":"  Xin chào  ","userId":"visitor-1"}`)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var reply chat.Response
	require.NoError(t, json.Unmarshal(body, &reply))
	assert.Equal(t, "Chào bạn 👋", reply.Message)
	assert.Equal(t, "msg_2", reply.MessageID)
	assert.Equal(t, "29", resp.Header.Get("X-RateLimit-Remaining"))
	assert.Equal(t, "9", resp.Header.Get("X-Questions-Remaining"))
	assert.Equal(t, int32(3), upstream.polls.Load())

	upstream.mu.Lock()
	require.Len(t, upstream.messages, 2)
	assert.Equal(t, "Xin chào", upstream.messages[0].Content[0].Text.Value)
	assert.Equal(t, "visitor-1", upstream.messages[0].Metadata["userId"])
	upstream.mu.Unlock()

	histResp := getAsVisitor(t, client, ts.URL+"/api/chat/history?order=asc&limit=500")
	var page chat.HistoryResponse
	require.NoError(t, json.NewDecoder(histResp.Body).Decode(&page))
	require.NoError(t, histResp.Body.Close())
	require.Equal(t, http.StatusOK, histResp.StatusCode)
	assert.Equal(t, 2, page.Count)

	// Status reads the caller's quotas without spending them.
	for i := 0; i < 2; i++ {
		code, report := fetchStatus(t, client, ts.URL)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, chat.StatusHealthy, report.Status)
		assert.Equal(t, "thread_it", report.ThreadInfo.ID)
		assert.Equal(t, 1, report.QuestionLimit.Used, "status call %d", i+1)
		assert.Equal(t, 9, report.QuestionLimit.Remaining, "status call %d", i+1)
		assert.Equal(t, 1, report.RateLimit.Used, "status call %d", i+1)
		assert.Equal(t, int64(1), report.Admissions["question"].Allowed)
	}
}

func TestChatFlow_RateLimitAcrossRequests(t *testing.T) {
	observability.InitServerLogger("test", "error")

	upstream := &fakeUpstream{}
	ts, client := newTestServer(t, nil, newChatStack(t, upstream, "asst_it", 2))

	for i := 0; i < 2; i++ {
		resp := postChat(t, client, ts.URL, `{"message":"hi"}`)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := postChat(t, client, ts.URL, `{"message":"hi"}`)
	var body struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Code)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	// Denied requests never reach the upstream.
	upstream.mu.Lock()
	assert.Len(t, upstream.messages, 4)
	upstream.mu.Unlock()
}

func TestChatFlow_StatusDegradedWhenAssistantMissing(t *testing.T) {
	observability.InitServerLogger("test", "error")

	ts, client := newTestServer(t, nil,
		newChatStack(t, &fakeUpstream{}, "asst_missing", 30))

	code, report := fetchStatus(t, client, ts.URL)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, chat.StatusDegraded, report.Status)
	assert.True(t, report.Checks.Thread)
	assert.False(t, report.Checks.Assistant)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "Assistant check failed")
}
