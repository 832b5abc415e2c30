package repository

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestMemoryHistoryRepo_GetUnknownUser(t *testing.T) {
	repo := NewMemoryHistoryRepo()

	msgs, err := repo.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", msgs)
	}
}

func TestMemoryHistoryRepo_AppendOrder(t *testing.T) {
	repo := NewMemoryHistoryRepo()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = fixedClock(at)
	ctx := context.Background()

	if err := repo.Append(ctx, "u1", "Hello", "Hi there"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, "u1", "How are you?", "Fine"); err != nil {
		t.Fatalf("append: %v", err)
	}

	msgs, _ := repo.Get(ctx, "u1")
	want := []struct {
		text   string
		isUser bool
	}{
		{"Hello", true},
		{"Hi there", false},
		{"How are you?", true},
		{"Fine", false},
	}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i, w := range want {
		if msgs[i].Text != w.text || msgs[i].IsUser != w.isUser {
			t.Errorf("message %d: expected {%q %v}, got {%q %v}", i, w.text, w.isUser, msgs[i].Text, msgs[i].IsUser)
		}
		if !msgs[i].Timestamp.Equal(at) {
			t.Errorf("message %d: expected timestamp %v, got %v", i, at, msgs[i].Timestamp)
		}
	}
}

func TestMemoryHistoryRepo_DuplicateAppendsAreKept(t *testing.T) {
	repo := NewMemoryHistoryRepo()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := repo.Append(ctx, "u1", "same", "same"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	msgs, _ := repo.Get(ctx, "u1")
	if len(msgs) != 4 {
		t.Fatalf("expected duplicates to be stored, got %d messages", len(msgs))
	}
}

func TestMemoryHistoryRepo_UsersAreIsolated(t *testing.T) {
	repo := NewMemoryHistoryRepo()
	ctx := context.Background()

	_ = repo.Append(ctx, "alice", "a", "b")
	_ = repo.Append(ctx, "bob", "c", "d")
	_ = repo.Clear(ctx, "alice")

	bob, _ := repo.Get(ctx, "bob")
	if len(bob) != 2 {
		t.Fatalf("clearing alice must not touch bob, got %d messages", len(bob))
	}
}

func TestMemoryHistoryRepo_Clear(t *testing.T) {
	repo := NewMemoryHistoryRepo()
	ctx := context.Background()

	if err := repo.Append(ctx, "u1", "Hello", "Hi"); err != nil {
		t.Fatalf("append: %v", err)
	}
	before, _ := repo.Session("u1")

	if err := repo.Clear(ctx, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	msgs, _ := repo.Get(ctx, "u1")
	if len(msgs) != 0 {
		t.Fatalf("expected empty transcript, got %d", len(msgs))
	}

	after, ok := repo.Session("u1")
	if !ok {
		t.Fatalf("expected session to survive clear")
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Fatalf("clear must not reset createdAt")
	}

	if err := repo.Clear(ctx, "ghost"); err != nil {
		t.Fatalf("clear unknown user: %v", err)
	}
	if _, ok := repo.Session("ghost"); ok {
		t.Fatalf("clear must not create a session")
	}

	if err := repo.Append(ctx, "u1", "again", "ok"); err != nil {
		t.Fatalf("append after clear: %v", err)
	}
	msgs, _ = repo.Get(ctx, "u1")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages after clear and append, got %d", len(msgs))
	}
}

func TestMemoryHistoryRepo_GetReturnsCopy(t *testing.T) {
	repo := NewMemoryHistoryRepo()
	ctx := context.Background()
	_ = repo.Append(ctx, "u1", "Hello", "Hi")

	msgs, _ := repo.Get(ctx, "u1")
	msgs[0].Text = "mutated"

	again, _ := repo.Get(ctx, "u1")
	if again[0].Text != "Hello" {
		t.Fatalf("caller mutation leaked into the store")
	}
}

func TestMemoryHistoryRepo_CanceledContext(t *testing.T) {
	repo := NewMemoryHistoryRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Append(ctx, "u1", "Hello", "Hi")
	var serr *StoreError
	if !errors.As(err, &serr) || serr.Op != "append" {
		t.Fatalf("expected append StoreError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected StoreError to wrap context.Canceled")
	}
}
