package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"api-chatbot/internal/database"
)

func newTestSQLiteRepo(t *testing.T) *SQLiteHistoryRepo {
	t.Helper()

	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	repo := NewSQLiteHistoryRepo(db)
	t.Cleanup(func() { repo.Close(context.Background()) })
	return repo
}

func TestSQLiteHistoryRepo_AppendGetClear(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = fixedClock(at)
	ctx := context.Background()

	msgs, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", msgs)
	}

	if err := repo.Append(ctx, "u1", "Hello", "Hi there"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, "u1", "Hello", "Hi there"); err != nil {
		t.Fatalf("duplicate append: %v", err)
	}

	msgs, err = repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		wantUser := i%2 == 0
		if m.IsUser != wantUser {
			t.Errorf("message %d: expected isUser=%v", i, wantUser)
		}
		if !m.Timestamp.Equal(at) {
			t.Errorf("message %d: expected timestamp %v, got %v", i, at, m.Timestamp)
		}
	}
	if msgs[0].Text != "Hello" || msgs[1].Text != "Hi there" {
		t.Fatalf("unexpected first pair: %+v", msgs[:2])
	}

	if err := repo.Clear(ctx, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	msgs, _ = repo.Get(ctx, "u1")
	if len(msgs) != 0 {
		t.Fatalf("expected empty transcript after clear, got %d", len(msgs))
	}

	var sessions int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_sessions WHERE user_id = ?`, "u1").Scan(&sessions); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if sessions != 1 {
		t.Fatalf("expected session to survive clear, got %d rows", sessions)
	}

	if err := repo.Clear(ctx, "ghost"); err != nil {
		t.Fatalf("clear unknown user: %v", err)
	}
}
