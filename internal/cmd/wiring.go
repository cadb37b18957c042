package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/folioai/chatgate/internal/assistant"
	"github.com/folioai/chatgate/internal/chat"
	"github.com/folioai/chatgate/internal/config"
	"github.com/folioai/chatgate/internal/limiter"
	"github.com/folioai/chatgate/internal/metrics"
	"github.com/folioai/chatgate/internal/observability"
)

// components holds everything serve builds from config.
type components struct {
	chat     *chat.Service
	api      *limiter.Store
	stores   []*limiter.Store
	recorder limiter.Recorder
	redis    *limiter.RedisRecorder
	close    func() error
}

func newStore(name string, w config.WindowConfig) *limiter.Store {
	return limiter.NewStore(name, w.Limit, w.Window, limiter.WithSweepEvery(w.SweepEvery))
}

// newRecorder selects the admission stats sink.
func newRecorder(cfg config.StatsConfig) (limiter.Recorder, *limiter.RedisRecorder, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return limiter.NewMemoryRecorder(limiter.WithTrackKeys(cfg.TrackKeys)), nil, noop, nil
	case "none":
		return nil, nil, noop, nil
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, nil, noop, fmt.Errorf("stats.redis_addr is required for the redis driver")
		}
		rdb := newRedisClient(cfg)
		rec := limiter.NewRedisRecorder(rdb,
			limiter.WithRedisPrefix(cfg.Prefix),
			limiter.WithRedisTTL(cfg.TTL),
			limiter.WithRedisBucket(cfg.Bucket),
			limiter.WithRedisTrackKeys(cfg.TrackKeys),
		)
		return rec, rec, rdb.Close, nil
	default:
		return nil, nil, noop, fmt.Errorf("unsupported stats driver: %s", cfg.Driver)
	}
}

func newRedisClient(cfg config.StatsConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	})
}

// buildComponents wires limiter stores, the assistant client and the chat service.
func buildComponents(cfg *config.Config) (*components, error) {
	recorder, redisRec, closeFn, err := newRecorder(cfg.Stats)
	if err != nil {
		return nil, err
	}

	rate := newStore("rate", cfg.Limits.Rate)
	question := newStore("question", cfg.Limits.Question)
	api := newStore("api", cfg.Limits.API)

	client := assistant.NewClient(cfg.Assistant.BaseURL, cfg.Assistant.APIKey)
	client.Timeout = cfg.Assistant.RequestTimeout
	if cfg.Assistant.RequestsPerSecond > 0 {
		client = client.WithThrottle(cfg.Assistant.RequestsPerSecond, cfg.Assistant.Burst)
	}

	var summarizer limiter.Summarizer
	if s, ok := recorder.(limiter.Summarizer); ok {
		summarizer = s
	}

	svc := &chat.Service{
		API: client,
		Orchestrator: &assistant.Orchestrator{
			API:          client,
			ThreadID:     cfg.Assistant.ThreadID,
			AssistantID:  cfg.Assistant.AssistantID,
			Instructions: cfg.Assistant.Instructions,
			PollInterval: cfg.Assistant.PollInterval,
			MaxAttempts:  cfg.Assistant.MaxAttempts,
		},
		Gate: &chat.Gate{
			Rate:          rate,
			Question:      question,
			Recorder:      recorder,
			RecordTimeout: cfg.Stats.RecordTimeout,
		},
		APIKeyConfigured:      client.Configured,
		Stats:                 summarizer,
		ThreadID:              cfg.Assistant.ThreadID,
		AssistantID:           cfg.Assistant.AssistantID,
		MaxMessageLength:      cfg.Assistant.MaxMessageLength,
		Environment:           observability.Environment(),
		AssistantIDConfigured: assistantIDConfigured(cfg),
	}

	return &components{
		chat:     svc,
		api:      api,
		stores:   []*limiter.Store{rate, question, api},
		recorder: recorder,
		redis:    redisRec,
		close:    closeFn,
	}, nil
}

func assistantIDConfigured(cfg *config.Config) bool {
	return strings.TrimSpace(cfg.Assistant.AssistantID) != "" &&
		cfg.Assistant.AssistantID != config.DefaultAssistantID
}

// startJanitors sweeps expired entries until ctx ends.
func (c *components) startJanitors(ctx context.Context) {
	for _, s := range c.stores {
		store := s
		store.StartJanitor(ctx, func(removed int) {
			metrics.RecordSweep(store.Name(), removed, store.Stats().TotalKeys)
			if removed > 0 && observability.ServerLogger != nil {
				observability.ServerLogger.Debug("Swept expired limiter entries",
					zap.String("limiter", store.Name()),
					zap.Int("removed", removed))
			}
		})
	}
}
