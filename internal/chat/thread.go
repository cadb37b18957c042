package chat

import (
	"context"
	"time"

	fulerrors "github.com/fulmenhq/gofulmen/errors"

	"github.com/folioai/chatgate/internal/assistant"
	apperrors "github.com/folioai/chatgate/internal/errors"
)

const threadHealthSample = 10

// ThreadHealth is the GET /api/chat body.
type ThreadHealth struct {
	Status          string  `json:"status"`
	ThreadID        string  `json:"threadId"`
	AssistantID     string  `json:"assistantId"`
	ThreadCreatedAt string  `json:"threadCreatedAt"`
	MessagesCount   int     `json:"messagesCount"`
	LastActivity    *string `json:"lastActivity"`
	Timestamp       string  `json:"timestamp"`
}

// ThreadHealth confirms the thread exists and samples its latest messages.
func (s *Service) ThreadHealth(ctx context.Context) (*ThreadHealth, *fulerrors.ErrorEnvelope) {
	if !s.keyConfigured() {
		return nil, apperrors.NewAPIKeyMissingError()
	}

	thread, err := s.API.GetThread(ctx, s.ThreadID)
	if err != nil {
		return nil, Classify(ctx, err, 0)
	}

	list, err := s.API.ListMessages(ctx, s.ThreadID, assistant.ListMessagesParams{
		Limit: threadHealthSample,
		Order: assistant.OrderDesc,
	})
	if err != nil {
		return nil, Classify(ctx, err, 0)
	}

	health := &ThreadHealth{
		Status:          StatusHealthy,
		ThreadID:        s.ThreadID,
		AssistantID:     s.AssistantID,
		ThreadCreatedAt: thread.Created().Format(time.RFC3339Nano),
		MessagesCount:   len(list.Data),
		Timestamp:       s.now().UTC().Format(time.RFC3339Nano),
	}
	if len(list.Data) > 0 {
		last := list.Data[0].Created().Format(time.RFC3339Nano)
		health.LastActivity = &last
	}
	return health, nil
}
