package chat

import (
	"context"
	"sync"
	"time"

	"github.com/folioai/chatgate/internal/assistant"
	"github.com/folioai/chatgate/internal/limiter"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeAPI struct {
	mu sync.Mutex

	statuses []assistant.RunStatus
	runErr   *assistant.RunLastError
	reply    *assistant.Message
	messages *assistant.MessageList
	thread   *assistant.Thread
	asst     *assistant.Assistant

	createErr error
	listErr   error
	threadErr error
	asstErr   error

	created    []assistant.CreateMessageRequest
	listParams []assistant.ListMessagesParams
	polls      int
}

func (f *fakeAPI) CreateMessage(_ context.Context, _ string, req assistant.CreateMessageRequest) (*assistant.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &assistant.Message{ID: "msg_user", Role: assistant.RoleUser}, nil
}

func (f *fakeAPI) CreateRun(context.Context, string, assistant.CreateRunRequest) (*assistant.Run, error) {
	return &assistant.Run{ID: "run_1", Status: assistant.RunQueued}, nil
}

func (f *fakeAPI) GetRun(context.Context, string, string) (*assistant.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := assistant.RunInProgress
	if f.polls < len(f.statuses) {
		status = f.statuses[f.polls]
	}
	f.polls++
	return &assistant.Run{ID: "run_1", Status: status, LastError: f.runErr}, nil
}

func (f *fakeAPI) ListMessages(_ context.Context, _ string, params assistant.ListMessagesParams) (*assistant.MessageList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listParams = append(f.listParams, params)
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.messages != nil {
		return f.messages, nil
	}
	if f.reply != nil {
		return &assistant.MessageList{Data: []assistant.Message{*f.reply}}, nil
	}
	return &assistant.MessageList{}, nil
}

func (f *fakeAPI) GetThread(_ context.Context, threadID string) (*assistant.Thread, error) {
	if f.threadErr != nil {
		return nil, f.threadErr
	}
	if f.thread != nil {
		return f.thread, nil
	}
	return &assistant.Thread{ID: threadID, CreatedAt: 1700000000}, nil
}

func (f *fakeAPI) GetAssistant(_ context.Context, id string) (*assistant.Assistant, error) {
	if f.asstErr != nil {
		return nil, f.asstErr
	}
	if f.asst != nil {
		return f.asst, nil
	}
	return &assistant.Assistant{ID: id, Model: "gpt-4o", CreatedAt: 1700000000}, nil
}

type noWait struct{}

func (noWait) Wait(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func textMessage(id, role, text string) *assistant.Message {
	return &assistant.Message{
		ID:        id,
		Role:      role,
		CreatedAt: 1760875200,
		Content: []assistant.ContentBlock{
			{Type: assistant.ContentTypeText, Text: &assistant.TextValue{Value: text}},
		},
	}
}

type fixture struct {
	clock    *fakeClock
	api      *fakeAPI
	gate     *Gate
	recorder *limiter.MemoryRecorder
	svc      *Service
	hasKey   bool
}

func newFixture() *fixture {
	f := &fixture{clock: newFakeClock(), api: &fakeAPI{}, hasKey: true}
	f.recorder = limiter.NewMemoryRecorder()
	f.gate = &Gate{
		Rate:     limiter.NewStore("rate", 30, time.Minute, limiter.WithClock(f.clock.Now)),
		Question: limiter.NewStore("question", 10, 24*time.Hour, limiter.WithClock(f.clock.Now)),
		Recorder: f.recorder,
	}
	f.svc = &Service{
		API: f.api,
		Orchestrator: &assistant.Orchestrator{
			API:          f.api,
			ThreadID:     "thread_test",
			AssistantID:  "asst_test",
			Instructions: "be nice",
			MaxAttempts:  60,
			PollInterval: time.Second,
			Scheduler:    noWait{},
			Clock:        f.clock.Now,
		},
		Gate:             f.gate,
		APIKeyConfigured: func() bool { return f.hasKey },
		Stats:            f.recorder,
		ThreadID:         "thread_test",
		AssistantID:      "asst_test",
		MaxMessageLength: 4000,
		Environment:      "test",
		Clock:            f.clock.Now,
	}
	return f
}
