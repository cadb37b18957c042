package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/folioai/chatgate/internal/observability"
)

const (
	DefaultPollInterval = time.Second
	DefaultMaxAttempts  = 60
	anonymousUser       = "anonymous"
)

// Orchestrator drives one chat turn against the assistant API:
// append the message, start a run, poll until terminal, read the answer.
//
// Each call owns its poll loop; nothing is shared between concurrent turns.
type Orchestrator struct {
	API          API
	ThreadID     string
	AssistantID  string
	Instructions string
	PollInterval time.Duration
	MaxAttempts  int
	Scheduler    Scheduler
	Clock        func() time.Time
}

// TurnRequest is an admitted, validated chat message.
type TurnRequest struct {
	Message string
	UserID  string
}

// Run executes one turn. The returned Turn is non-nil whenever the message
// was submitted, including on failure.
func (o *Orchestrator) Run(ctx context.Context, req TurnRequest) (*Turn, error) {
	if o == nil || o.API == nil {
		return nil, fmt.Errorf("assistant orchestrator not configured")
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = anonymousUser
	}

	turn := &Turn{SubmittedMessage: strings.TrimSpace(req.Message)}

	msg, err := o.API.CreateMessage(ctx, o.ThreadID, CreateMessageRequest{
		Role:    RoleUser,
		Content: turn.SubmittedMessage,
		Metadata: map[string]string{
			"userId":    userID,
			"timestamp": o.now().UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return turn, MapUpstreamError(err)
	}
	turn.UserMessageID = msg.ID
	turn.State = TurnSubmitted
	logDebug("Message added to thread", zap.String("message_id", msg.ID))

	run, err := o.API.CreateRun(ctx, o.ThreadID, CreateRunRequest{
		AssistantID:  o.AssistantID,
		Instructions: o.Instructions,
	})
	if err != nil {
		return turn, MapUpstreamError(err)
	}
	turn.RunID = run.ID
	turn.observe(run.Status)
	logInfo("Assistant run started", zap.String("run_id", run.ID))

	return turn, o.poll(ctx, turn)
}

func (o *Orchestrator) poll(ctx context.Context, turn *Turn) error {
	maxAttempts := o.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	interval := o.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	scheduler := o.Scheduler
	if scheduler == nil {
		scheduler = TimerScheduler{}
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		run, err := o.API.GetRun(ctx, o.ThreadID, turn.RunID)
		if err != nil {
			return MapUpstreamError(err)
		}
		turn.Attempts = attempt
		turn.observe(run.Status)

		logDebug("Run status",
			zap.String("run_id", turn.RunID),
			zap.Int("attempt", attempt),
			zap.String("status", string(run.Status)))

		switch run.Status {
		case RunCompleted:
			return o.collectReply(ctx, turn)
		case RunFailed:
			msg := ""
			if run.LastError != nil {
				msg = run.LastError.Message
			}
			return &RunError{RunID: turn.RunID, Status: RunFailed, Message: msg}
		case RunCancelled:
			return &RunError{RunID: turn.RunID, Status: RunCancelled}
		case RunExpired:
			return &RunError{RunID: turn.RunID, Status: RunExpired}
		}

		if attempt == maxAttempts {
			break
		}
		if err := scheduler.Wait(ctx, interval); err != nil {
			return err
		}
	}

	turn.State = TurnTimedOut
	return ErrResponseTimeout
}

func (o *Orchestrator) collectReply(ctx context.Context, turn *Turn) error {
	list, err := o.API.ListMessages(ctx, o.ThreadID, ListMessagesParams{Limit: 1, Order: OrderDesc})
	if err != nil {
		return MapUpstreamError(err)
	}
	if list == nil || len(list.Data) == 0 {
		return ErrInvalidResponseFormat
	}

	last := &list.Data[0]
	if last.Role != RoleAssistant {
		return ErrInvalidResponseFormat
	}
	text, ok := last.FirstText()
	if !ok {
		return ErrInvalidResponseFormat
	}

	turn.Reply = &Reply{Text: text, MessageID: last.ID}
	return nil
}

// Outcome is a low-cardinality label for a finished turn.
func Outcome(err error) string {
	if err == nil {
		return "completed"
	}

	var runErr *RunError
	switch {
	case errors.As(err, &runErr):
		return string(runErr.Status)
	case errors.Is(err, ErrResponseTimeout):
		return "timeout"
	case errors.Is(err, ErrInvalidResponseFormat):
		return "invalid_response"
	case errors.Is(err, context.Canceled):
		return "client_cancelled"
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return "upstream_" + upstream.Kind.String()
	}
	return "error"
}

func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

func logInfo(msg string, fields ...zap.Field) {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info(msg, fields...)
	}
}

func logDebug(msg string, fields ...zap.Field) {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Debug(msg, fields...)
	}
}
