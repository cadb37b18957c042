package chat

import (
	"context"
	"errors"
	"time"

	fulerrors "github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/folioai/chatgate/internal/assistant"
	apperrors "github.com/folioai/chatgate/internal/errors"
	"github.com/folioai/chatgate/internal/limiter"
	"github.com/folioai/chatgate/internal/metrics"
)

// Service implements the chat, history, status and thread health operations.
type Service struct {
	API          assistant.API
	Orchestrator *assistant.Orchestrator
	Gate         *Gate
	// APIKeyConfigured reports whether upstream credentials exist.
	APIKeyConfigured func() bool
	// Stats, when set, contributes admission counters to status reports.
	Stats limiter.Summarizer

	ThreadID         string
	AssistantID      string
	MaxMessageLength int
	Environment      string
	// AssistantIDConfigured is true when the assistant ID was set explicitly
	// rather than falling back to the built-in default.
	AssistantIDConfigured bool

	Clock func() time.Time
}

// Response is the successful POST /api/chat body.
type Response struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	MessageID string `json:"messageId"`
}

// Chat validates an admitted body and runs one assistant turn.
func (s *Service) Chat(ctx context.Context, body []byte) (*Response, *fulerrors.ErrorEnvelope) {
	req, env := DecodeRequest(body, s.MaxMessageLength)
	if env != nil {
		return nil, env
	}

	if !s.keyConfigured() {
		return nil, apperrors.NewAPIKeyMissingError()
	}

	userID := req.UserID
	if userID == "" {
		userID = "anonymous"
	}
	logInfo("New chat message",
		zap.String("user_id", userID),
		zap.String("preview", preview(req.Message, 100)))

	start := time.Now()
	turn, err := s.Orchestrator.Run(ctx, assistant.TurnRequest{Message: req.Message, UserID: req.UserID})
	attempts := 0
	if turn != nil {
		attempts = turn.Attempts
	}
	metrics.RecordTurn(assistant.Outcome(err), attempts, time.Since(start))

	if err != nil {
		fields := []zap.Field{zap.Error(err), zap.Int("attempts", attempts)}
		if turn != nil {
			fields = append(fields, zap.String("run_id", turn.RunID), zap.String("state", string(turn.State)))
		}
		logError("Chat turn failed", fields...)
		return nil, Classify(ctx, err, attempts)
	}

	logInfo("Response generated",
		zap.String("run_id", turn.RunID),
		zap.Int("attempts", attempts),
		zap.String("preview", preview(turn.Reply.Text, 100)))

	return &Response{
		Message:   turn.Reply.Text,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		MessageID: turn.Reply.MessageID,
	}, nil
}

// Classify turns an orchestrator or upstream error into the caller-facing envelope.
func Classify(ctx context.Context, err error, attempts int) *fulerrors.ErrorEnvelope {
	var runErr *assistant.RunError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &runErr):
		switch runErr.Status {
		case assistant.RunCancelled:
			return apperrors.NewRunCancelledError()
		case assistant.RunExpired:
			return apperrors.NewRunExpiredError()
		default:
			return apperrors.NewRunFailedError(runErr.Message)
		}
	case errors.Is(err, assistant.ErrResponseTimeout):
		return apperrors.NewResponseTimeoutError(attempts)
	case errors.Is(err, assistant.ErrInvalidResponseFormat):
		return apperrors.NewInvalidResponseFormatError()
	case errors.Is(err, assistant.ErrMissingAPIKey):
		return apperrors.NewAPIKeyMissingError()
	case errors.Is(err, context.Canceled):
		return apperrors.WrapInternal(ctx, err, "Request cancelled")
	}

	upstream := assistant.MapUpstreamError(err)
	switch upstream.Kind {
	case assistant.UpstreamInvalidRequest:
		return apperrors.WrapUpstream(ctx, apperrors.CodeUpstreamInvalidRequest, err, "OpenAI API error: "+upstream.Message)
	case assistant.UpstreamAuth:
		return apperrors.WrapUpstream(ctx, apperrors.CodeUpstreamAuth, err, "OpenAI authentication failed")
	case assistant.UpstreamPermission:
		return apperrors.WrapUpstream(ctx, apperrors.CodeUpstreamPermission, err, "OpenAI permission denied")
	case assistant.UpstreamRateLimit:
		return apperrors.WrapUpstream(ctx, apperrors.CodeUpstreamRateLimit, err, "Rate limit exceeded - please try again later")
	case assistant.UpstreamNotFound:
		return apperrors.WrapUpstream(ctx, apperrors.CodeUpstreamNotFound, err, "OpenAI resource not found")
	case assistant.UpstreamUnavailable:
		return apperrors.WrapUpstream(ctx, apperrors.CodeUpstreamUnavailable, err, "OpenAI service unavailable - please try again later")
	case assistant.UpstreamTimeout:
		return apperrors.NewResponseTimeoutError(attempts)
	default:
		return apperrors.WrapInternal(ctx, err, "Internal server error - please try again later")
	}
}

func (s *Service) keyConfigured() bool {
	if s.APIKeyConfigured == nil {
		return true
	}
	return s.APIKeyConfigured()
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// preview returns at most n runes of s.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
