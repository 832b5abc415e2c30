package repository

import (
	"context"
	"sync"
	"time"

	"api-chatbot/internal/models"
)

type MemoryHistoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]*models.ChatSession
	now      func() time.Time
}

func NewMemoryHistoryRepo() *MemoryHistoryRepo {
	return &MemoryHistoryRepo{
		sessions: make(map[string]*models.ChatSession),
		now:      time.Now,
	}
}

func (r *MemoryHistoryRepo) Append(ctx context.Context, userID, userText, botText string) error {
	if err := ctx.Err(); err != nil {
		return storeErr("append", userID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	session, ok := r.sessions[userID]
	if !ok {
		session = &models.ChatSession{UserID: userID, CreatedAt: now}
		r.sessions[userID] = session
	}
	session.Messages = append(session.Messages, turnMessages(userText, botText, now)...)
	return nil
}

func (r *MemoryHistoryRepo) Get(ctx context.Context, userID string) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("get", userID, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[userID]
	if !ok {
		return []models.Message{}, nil
	}
	out := make([]models.Message, len(session.Messages))
	copy(out, session.Messages)
	return out, nil
}

func (r *MemoryHistoryRepo) Clear(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return storeErr("clear", userID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[userID]; ok {
		session.Messages = nil
	}
	return nil
}

// Session returns a copy of the stored record; used by tests to check that
// clearing keeps the session.
func (r *MemoryHistoryRepo) Session(userID string) (models.ChatSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[userID]
	if !ok {
		return models.ChatSession{}, false
	}
	cp := *session
	cp.Messages = append([]models.Message(nil), session.Messages...)
	return cp, true
}

func (r *MemoryHistoryRepo) Ping(ctx context.Context) error { return nil }

func (r *MemoryHistoryRepo) Close(ctx context.Context) error { return nil }
