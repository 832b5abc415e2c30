package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"api-chatbot/internal/models"
)

type PostgresHistoryRepo struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresHistoryRepo(pool *pgxpool.Pool) *PostgresHistoryRepo {
	return &PostgresHistoryRepo{pool: pool, now: time.Now}
}

func (r *PostgresHistoryRepo) Append(ctx context.Context, userID, userText, botText string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storeErr("append", userID, fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback(ctx)

	now := r.now().UTC()
	if _, err := tx.Exec(ctx, `
		INSERT INTO chat_sessions (user_id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, now); err != nil {
		return storeErr("append", userID, fmt.Errorf("upsert session: %w", err))
	}

	for _, m := range turnMessages(userText, botText, now) {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chat_messages (user_id, text, is_user, created_at)
			VALUES ($1, $2, $3, $4)
		`, userID, m.Text, m.IsUser, m.Timestamp); err != nil {
			return storeErr("append", userID, fmt.Errorf("insert message: %w", err))
		}
	}

	return storeErr("append", userID, tx.Commit(ctx))
}

func (r *PostgresHistoryRepo) Get(ctx context.Context, userID string) ([]models.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT text, is_user, created_at
		FROM chat_messages
		WHERE user_id = $1
		ORDER BY id ASC
	`, userID)
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

func (r *PostgresHistoryRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chat_messages WHERE user_id = $1`, userID)
	return storeErr("clear", userID, err)
}

func (r *PostgresHistoryRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresHistoryRepo) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}
