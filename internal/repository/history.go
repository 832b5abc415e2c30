package repository

import (
	"context"
	"fmt"
	"time"

	"api-chatbot/internal/models"
)

// HistoryStore is the per-user append-only transcript log. A session is
// created by the first Append and is never deleted; Clear only empties it.
type HistoryStore interface {
	// Append upserts the session and adds the user message followed by the
	// bot message. Calls are not deduplicated.
	Append(ctx context.Context, userID, userText, botText string) error
	// Get returns the transcript in insertion order, or an empty slice when
	// the user has no session.
	Get(ctx context.Context, userID string) ([]models.Message, error)
	// Clear empties the transcript. Clearing an unknown user is a no-op.
	Clear(ctx context.Context, userID string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// StoreError wraps any persistence failure.
type StoreError struct {
	Op     string
	UserID string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("history store %s for %q: %v", e.Op, e.UserID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op, userID string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, UserID: userID, Err: err}
}

// turnMessages builds the user/bot pair of one turn with a shared store-side timestamp.
func turnMessages(userText, botText string, now time.Time) []models.Message {
	return []models.Message{
		{Text: userText, IsUser: true, Timestamp: now},
		{Text: botText, IsUser: false, Timestamp: now},
	}
}
