package assistant

import (
	"context"
	"time"
)

// RunStatus is the lifecycle state of an assistant run.
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCancelling     RunStatus = "cancelling"
	RunCompleted      RunStatus = "completed"
	RunFailed         RunStatus = "failed"
	RunCancelled      RunStatus = "cancelled"
	RunExpired        RunStatus = "expired"
	RunIncomplete     RunStatus = "incomplete"
)

// Terminal reports whether polling stops at this status.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled, RunExpired:
		return true
	default:
		return false
	}
}

// Role values used on thread messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentTypeText marks a text content block.
const ContentTypeText = "text"

// Thread is the conversation context every chat turn is appended to.
type Thread struct {
	ID        string            `json:"id"`
	CreatedAt int64             `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Created returns CreatedAt as a UTC time.
func (t *Thread) Created() time.Time { return unixTime(t.CreatedAt) }

// Assistant is the upstream assistant profile.
type Assistant struct {
	ID           string  `json:"id"`
	Name         *string `json:"name"`
	Model        string  `json:"model"`
	Instructions *string `json:"instructions"`
	CreatedAt    int64   `json:"created_at"`
}

// Created returns CreatedAt as a UTC time.
func (a *Assistant) Created() time.Time { return unixTime(a.CreatedAt) }

// TextValue is the body of a text content block.
type TextValue struct {
	Value string `json:"value"`
}

// ContentBlock is one piece of message content.
type ContentBlock struct {
	Type string     `json:"type"`
	Text *TextValue `json:"text,omitempty"`
}

// Message is an entry in the thread's history.
type Message struct {
	ID          string            `json:"id"`
	ThreadID    string            `json:"thread_id"`
	Role        string            `json:"role"`
	Content     []ContentBlock    `json:"content"`
	CreatedAt   int64             `json:"created_at"`
	AssistantID *string           `json:"assistant_id,omitempty"`
	RunID       *string           `json:"run_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Created returns CreatedAt as a UTC time.
func (m *Message) Created() time.Time { return unixTime(m.CreatedAt) }

// FirstText returns the first content block's text when it is a text block.
func (m *Message) FirstText() (string, bool) {
	if m == nil || len(m.Content) == 0 {
		return "", false
	}
	block := m.Content[0]
	if block.Type != ContentTypeText || block.Text == nil {
		return "", false
	}
	return block.Text.Value, true
}

// MessageList is a page of thread messages.
type MessageList struct {
	Data    []Message `json:"data"`
	FirstID *string   `json:"first_id"`
	LastID  *string   `json:"last_id"`
	HasMore bool      `json:"has_more"`
}

// RunLastError is the upstream's description of a failed run.
type RunLastError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Run is one processing pass of the assistant over the thread.
type Run struct {
	ID          string        `json:"id"`
	ThreadID    string        `json:"thread_id"`
	AssistantID string        `json:"assistant_id"`
	Status      RunStatus     `json:"status"`
	LastError   *RunLastError `json:"last_error,omitempty"`
	CreatedAt   int64         `json:"created_at"`
}

// CreateMessageRequest appends a message to a thread.
type CreateMessageRequest struct {
	Role     string            `json:"role"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreateRunRequest starts a run on a thread.
type CreateRunRequest struct {
	AssistantID  string `json:"assistant_id"`
	Instructions string `json:"instructions,omitempty"`
}

// Order is the sort direction for message listings.
type Order string

const (
	OrderDesc Order = "desc"
	OrderAsc  Order = "asc"
)

// ListMessagesParams controls a cursor-paginated message listing.
type ListMessagesParams struct {
	Limit  int
	Order  Order
	Before string
	After  string
}

// API is the external assistant service boundary.
type API interface {
	CreateMessage(ctx context.Context, threadID string, req CreateMessageRequest) (*Message, error)
	CreateRun(ctx context.Context, threadID string, req CreateRunRequest) (*Run, error)
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)
	ListMessages(ctx context.Context, threadID string, params ListMessagesParams) (*MessageList, error)
	GetThread(ctx context.Context, threadID string) (*Thread, error)
	GetAssistant(ctx context.Context, assistantID string) (*Assistant, error)
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
