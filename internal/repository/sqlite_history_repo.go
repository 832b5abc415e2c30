package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"api-chatbot/internal/models"
)

// SQLiteHistoryRepo shares the relational layout of the Postgres store. The
// *sql.DB is expected to come from database.OpenSQLite, which registers the
// driver and applies the schema.
type SQLiteHistoryRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteHistoryRepo(db *sql.DB) *SQLiteHistoryRepo {
	return &SQLiteHistoryRepo{db: db, now: time.Now}
}

func (r *SQLiteHistoryRepo) Append(ctx context.Context, userID, userText, botText string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("append", userID, fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	now := r.now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO chat_sessions (user_id, created_at) VALUES (?, ?)`,
		userID, now,
	); err != nil {
		return storeErr("append", userID, fmt.Errorf("upsert session: %w", err))
	}

	for _, m := range turnMessages(userText, botText, now) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_messages (user_id, text, is_user, created_at) VALUES (?, ?, ?, ?)`,
			userID, m.Text, m.IsUser, m.Timestamp,
		); err != nil {
			return storeErr("append", userID, fmt.Errorf("insert message: %w", err))
		}
	}

	return storeErr("append", userID, tx.Commit())
}

func (r *SQLiteHistoryRepo) Get(ctx context.Context, userID string) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT text, is_user, created_at FROM chat_messages WHERE user_id = ? ORDER BY id ASC`,
		userID,
	)
	if err != nil {
		return nil, storeErr("get", userID, err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.Text, &m.IsUser, &m.Timestamp); err != nil {
			return nil, storeErr("get", userID, err)
		}
		messages = append(messages, m)
	}
	return messages, storeErr("get", userID, rows.Err())
}

func (r *SQLiteHistoryRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE user_id = ?`, userID)
	return storeErr("clear", userID, err)
}

func (r *SQLiteHistoryRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteHistoryRepo) Close(ctx context.Context) error {
	return r.db.Close()
}
