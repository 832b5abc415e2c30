package chatclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"api-chatbot/internal/models"
)

// ErrBusy is returned when a send or load is attempted while another
// request is still in flight.
var ErrBusy = errors.New("a request is already in progress")

type relayAPI interface {
	Generate(ctx context.Context, prompt, userID string) (string, error)
	History(ctx context.Context, userID string) ([]models.Message, error)
	ClearHistory(ctx context.Context, userID string) error
}

// Session mirrors one user's server transcript locally. User messages are
// appended optimistically and never rolled back; failed turns add a
// synthesized bot message instead.
type Session struct {
	mu       sync.Mutex
	api      relayAPI
	userID   string
	messages []models.Message
	loading  bool
	lastErr  error
	logger   zerolog.Logger
	now      func() time.Time
}

func NewSession(api relayAPI, prefs *Preferences, logger zerolog.Logger) (*Session, error) {
	userID, err := prefs.EnsureUserID()
	if err != nil {
		return nil, err
	}
	return &Session{
		api:    api,
		userID: userID,
		logger: logger.With().Str("user_id", userID).Logger(),
		now:    time.Now,
	}, nil
}

func (s *Session) UserID() string { return s.userID }

// Load replaces the transcript with the server copy. On failure the local
// transcript is left as it was.
func (s *Session) Load(ctx context.Context) error {
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	history, err := s.api.History(ctx, s.userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch chat history")
		return err
	}

	s.mu.Lock()
	s.messages = history
	s.mu.Unlock()
	return nil
}

// Send runs one turn and returns the bot message that was appended. Blank
// prompts are ignored and return a zero Message.
func (s *Session) Send(ctx context.Context, prompt string) (models.Message, error) {
	if strings.TrimSpace(prompt) == "" {
		return models.Message{}, nil
	}
	if !s.begin() {
		return models.Message{}, ErrBusy
	}
	defer s.end()

	s.mu.Lock()
	s.lastErr = nil
	s.messages = append(s.messages, models.Message{Text: prompt, IsUser: true, Timestamp: s.now()})
	s.mu.Unlock()

	reply := models.Message{IsUser: false}
	text, err := s.api.Generate(ctx, prompt, s.userID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("turn failed")
		reply.Text = fmt.Sprintf("Sorry, I encountered an error: %s. Please try again.", err.Error())
	} else {
		reply.Text = text
	}
	reply.Timestamp = s.now()

	s.mu.Lock()
	s.lastErr = err
	s.messages = append(s.messages, reply)
	s.mu.Unlock()
	return reply, nil
}

// Clear asks the relay to empty the transcript and empties the local copy
// on success.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.api.ClearHistory(ctx, s.userID); err != nil {
		s.logger.Error().Err(err).Msg("failed to clear history on server")
		s.mu.Lock()
		s.lastErr = errors.New("Failed to clear chat history")
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.messages = nil
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return false
	}
	s.loading = true
	return true
}

func (s *Session) end() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}
