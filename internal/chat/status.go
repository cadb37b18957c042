package chat

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/folioai/chatgate/internal/limiter"
)

// Status values reported by Status and ThreadHealth.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

const instructionsPreviewLen = 100

// StatusChecks lists the upstream checks performed by Status.
type StatusChecks struct {
	APIKey    bool `json:"apiKey"`
	Thread    bool `json:"thread"`
	Assistant bool `json:"assistant"`
}

// ThreadInfo describes the shared thread.
type ThreadInfo struct {
	ID        string            `json:"id"`
	CreatedAt string            `json:"createdAt"`
	Metadata  map[string]string `json:"metadata"`
}

// AssistantInfo describes the upstream assistant.
type AssistantInfo struct {
	ID           string  `json:"id"`
	Name         *string `json:"name"`
	Model        string  `json:"model"`
	CreatedAt    string  `json:"createdAt"`
	Instructions string  `json:"instructions"`
}

// LimitStatus is a read-only view of one quota for the caller.
type LimitStatus struct {
	Remaining int    `json:"remaining"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	ResetTime string `json:"resetTime"`
}

// EnvironmentInfo reports deployment facts without exposing secrets.
type EnvironmentInfo struct {
	Environment    string `json:"environment"`
	HasAPIKey      bool   `json:"hasApiKey"`
	HasAssistantID bool   `json:"hasAssistantId"`
}

// StatusReport is the GET /api/chat/status body.
type StatusReport struct {
	Status        string                      `json:"status"`
	Message       string                      `json:"message"`
	Checks        StatusChecks                `json:"checks"`
	ThreadInfo    *ThreadInfo                 `json:"threadInfo"`
	AssistantInfo *AssistantInfo              `json:"assistantInfo"`
	RateLimit     LimitStatus                 `json:"rateLimit"`
	QuestionLimit LimitStatus                 `json:"questionLimit"`
	Errors        []string                    `json:"errors,omitempty"`
	Environment   EnvironmentInfo             `json:"environment"`
	Limiters      map[string]limiter.Stats    `json:"limiters,omitempty"`
	Admissions    map[string]limiter.Counters `json:"admissions,omitempty"`
	Timestamp     string                      `json:"timestamp"`
}

// Status reports the caller's quotas and upstream reachability.
//
// Quotas are peeked, never consumed. The HTTP status is 200 when every check
// passes, 503 when an upstream check fails and 500 without an API key.
func (s *Service) Status(ctx context.Context, identity string) (*StatusReport, int) {
	rate, question := s.Gate.Peek(identity)

	report := &StatusReport{
		Checks:        StatusChecks{APIKey: s.keyConfigured()},
		RateLimit:     limitStatus(rate),
		QuestionLimit: limitStatus(question),
		Environment: EnvironmentInfo{
			Environment:    s.Environment,
			HasAPIKey:      s.keyConfigured(),
			HasAssistantID: s.AssistantIDConfigured,
		},
		Limiters: map[string]limiter.Stats{
			s.Gate.Rate.Name():     s.Gate.Rate.Stats(),
			s.Gate.Question.Name(): s.Gate.Question.Stats(),
		},
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	}

	if s.Stats != nil {
		if summary, err := s.Stats.Summary(ctx); err != nil {
			logWarn("Failed to read admission summary", zap.Error(err))
		} else if len(summary) > 0 {
			report.Admissions = summary
		}
	}

	if !report.Checks.APIKey {
		report.Status = StatusError
		report.Message = "OpenAI API key not configured"
		return report, http.StatusInternalServerError
	}

	if thread, err := s.API.GetThread(ctx, s.ThreadID); err != nil {
		report.Errors = append(report.Errors, "Thread check failed: "+err.Error())
	} else {
		report.Checks.Thread = true
		report.ThreadInfo = &ThreadInfo{
			ID:        thread.ID,
			CreatedAt: thread.Created().Format(time.RFC3339Nano),
			Metadata:  thread.Metadata,
		}
	}

	if asst, err := s.API.GetAssistant(ctx, s.AssistantID); err != nil {
		report.Errors = append(report.Errors, "Assistant check failed: "+err.Error())
	} else {
		report.Checks.Assistant = true
		report.AssistantInfo = &AssistantInfo{
			ID:           asst.ID,
			Name:         asst.Name,
			Model:        asst.Model,
			CreatedAt:    asst.Created().Format(time.RFC3339Nano),
			Instructions: truncateInstructions(asst.Instructions),
		}
	}

	if report.Checks.Thread && report.Checks.Assistant {
		report.Status = StatusHealthy
		report.Message = "All systems operational"
		return report, http.StatusOK
	}

	logWarn("Status check degraded", zap.Strings("errors", report.Errors))
	report.Status = StatusDegraded
	report.Message = "Some systems have issues"
	return report, http.StatusServiceUnavailable
}

func limitStatus(r limiter.Result) LimitStatus {
	return LimitStatus{
		Remaining: r.Remaining,
		Used:      r.Used,
		Limit:     r.Limit,
		ResetTime: r.ResetAt.UTC().Format(time.RFC3339Nano),
	}
}

// truncateInstructions keeps the first 100 characters and marks the cut with "...".
func truncateInstructions(s *string) string {
	if s == nil {
		return ""
	}
	runes := []rune(*s)
	if len(runes) <= instructionsPreviewLen {
		return *s
	}
	return string(runes[:instructionsPreviewLen]) + "..."
}
