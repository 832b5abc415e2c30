package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"api-chatbot/internal/lock"
	"api-chatbot/internal/metrics"
	"api-chatbot/internal/models"
	"api-chatbot/internal/repository"
)

// persistTimeout bounds the history write of a turn. The write is detached
// from the request context so a client hanging up does not drop it.
const persistTimeout = 10 * time.Second

// HistoryPublisher is notified after a user's transcript changes.
type HistoryPublisher interface {
	Publish(ctx context.Context, event models.HistoryEvent)
}

type TurnRequest struct {
	Prompt string
	UserID string
}

// TurnResult separates "the user got an answer" from "the exchange was
// recorded".
type TurnResult struct {
	Text      string
	Delivered bool
	Persisted bool
}

type RelayService struct {
	gateway CompletionGateway
	store   repository.HistoryStore
	locker  lock.Locker
	events  HistoryPublisher
	logger  zerolog.Logger
}

func NewRelayService(
	gateway CompletionGateway,
	store repository.HistoryStore,
	locker lock.Locker,
	events HistoryPublisher,
	logger zerolog.Logger,
) *RelayService {
	return &RelayService{
		gateway: gateway,
		store:   store,
		locker:  locker,
		events:  events,
		logger:  logger.With().Str("component", "relay").Logger(),
	}
}

// Turn runs one chat exchange: completion first, then a best-effort append
// of both messages. Only provider failures are returned.
func (s *RelayService) Turn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = models.DefaultPrompt
	}
	userID := NormalizeUserID(req.UserID)
	logger := s.loggerFor(ctx, userID)

	text, err := s.gateway.Complete(ctx, prompt)
	if err != nil {
		metrics.TurnsTotal.WithLabelValues("provider_error").Inc()
		var perr *ProviderError
		if !errors.As(err, &perr) {
			err = &ProviderError{Reason: ReasonUpstream, Err: err}
		}
		logger.Error().Err(err).Msg("completion failed")
		return TurnResult{}, err
	}

	result := TurnResult{Text: text, Delivered: true}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := s.withUserLock(persistCtx, userID, func(ctx context.Context) error {
		return s.store.Append(ctx, userID, prompt, text)
	}); err != nil {
		metrics.TurnsTotal.WithLabelValues("unpersisted").Inc()
		metrics.StoreErrors.WithLabelValues("append").Inc()
		logger.Warn().Err(err).Msg("turn delivered but not persisted")
		return result, nil
	}

	result.Persisted = true
	metrics.TurnsTotal.WithLabelValues("persisted").Inc()
	s.publish(persistCtx, models.EventHistoryAppended, userID)
	logger.Debug().Int("prompt_len", len(prompt)).Int("reply_len", len(text)).Msg("turn persisted")
	return result, nil
}

// History returns the user's transcript, empty when none exists.
func (s *RelayService) History(ctx context.Context, userID string) ([]models.Message, error) {
	messages, err := s.store.Get(ctx, userID)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("get").Inc()
		logger := s.loggerFor(ctx, userID)
		logger.Error().Err(err).Msg("failed to fetch chat history")
		return nil, err
	}
	return messages, nil
}

func (s *RelayService) ClearHistory(ctx context.Context, userID string) error {
	err := s.withUserLock(ctx, userID, func(ctx context.Context) error {
		return s.store.Clear(ctx, userID)
	})
	if err != nil {
		metrics.StoreErrors.WithLabelValues("clear").Inc()
		logger := s.loggerFor(ctx, userID)
		logger.Error().Err(err).Msg("failed to clear chat history")
		return err
	}

	s.publish(ctx, models.EventHistoryCleared, userID)
	return nil
}

// loggerFor prefers the request-scoped logger placed in ctx by the HTTP
// middleware so relay logs carry the request id.
func (s *RelayService) loggerFor(ctx context.Context, userID string) zerolog.Logger {
	base := s.logger
	if reqLogger := zerolog.Ctx(ctx); reqLogger.GetLevel() != zerolog.Disabled {
		base = reqLogger.With().Str("component", "relay").Logger()
	}
	return base.With().Str("user_id", userID).Logger()
}

func (s *RelayService) withUserLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(ctx)
}

func (s *RelayService) publish(ctx context.Context, eventType, userID string) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, models.HistoryEvent{Type: eventType, UserID: userID})
}

// NormalizeUserID maps a blank id to the shared anonymous session.
func NormalizeUserID(userID string) string {
	if strings.TrimSpace(userID) == "" {
		return models.DefaultUserID
	}
	return userID
}
