package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
)

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	if err := row.Scan(&m.ID, &m.TeamID, &m.SenderID, &m.Content, &m.CreatedAt, &m.ReadBy); err != nil {
		return nil, err
	}
	if m.ReadBy == nil {
		m.ReadBy = []string{}
	}
	return &m, nil
}

// CreateMessage inserts a message and its initial read receipts.
func (r *Repository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	if len(msg.ReadBy) == 0 {
		msg.ReadBy = []string{msg.SenderID}
	}
	return r.withTx(ctx, func(q querier) error {
		const insertMessage = `INSERT INTO messages (id, team_id, sender_id, content, created_at)
			VALUES ($1, $2, $3, $4, $5)`
		if _, err := q.Exec(ctx, insertMessage, msg.ID, msg.TeamID, msg.SenderID, msg.Content, msg.CreatedAt); err != nil {
			return fmt.Errorf("insert message: %w", mapWriteError(err))
		}
		const insertReads = `INSERT INTO message_reads (message_id, user_id, read_at)
			SELECT $1, reader, $3 FROM unnest($2::uuid[]) AS reader
			ON CONFLICT (message_id, user_id) DO NOTHING`
		if _, err := q.Exec(ctx, insertReads, msg.ID, msg.ReadBy, msg.CreatedAt); err != nil {
			return fmt.Errorf("insert message reads: %w", mapWriteError(err))
		}
		return nil
	})
}

// ListRecentMessages returns the newest limit messages of a team, oldest first.
func (r *Repository) ListRecentMessages(ctx context.Context, teamID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = domain.DefaultHistorySize
	}
	const query = `SELECT id, team_id, sender_id, content, created_at, readers FROM (
			SELECT m.id, m.team_id, m.sender_id, m.content, m.created_at, m.seq,
				ARRAY(SELECT mr.user_id::text FROM message_reads mr WHERE mr.message_id = m.id ORDER BY mr.read_at, mr.user_id) AS readers
			FROM messages m
			WHERE m.team_id = $1
			ORDER BY m.seq DESC
			LIMIT $2
		) recent
		ORDER BY seq ASC`
	rows, err := r.db.Query(ctx, query, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", mapReadError(err))
	}
	defer rows.Close()

	msgs := make([]domain.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

// MarkMessagesRead records userID as a reader of every team message sent by
// someone else. Existing receipts are left alone, so only newly read ids
// are returned and repeated calls are no-ops.
func (r *Repository) MarkMessagesRead(ctx context.Context, teamID, userID string) ([]string, error) {
	const query = `INSERT INTO message_reads (message_id, user_id, read_at)
		SELECT m.id, $2, NOW() FROM messages m
		WHERE m.team_id = $1 AND m.sender_id <> $2
		ON CONFLICT (message_id, user_id) DO NOTHING
		RETURNING message_id::text`
	rows, err := r.db.Query(ctx, query, teamID, userID)
	if err != nil {
		return nil, fmt.Errorf("mark messages read: %w", mapWriteError(err))
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mark messages read: %w", mapWriteError(err))
	}
	return ids, nil
}

// CountUnread counts team messages from others without a receipt for userID.
func (r *Repository) CountUnread(ctx context.Context, teamID, userID string) (int, error) {
	const query = `SELECT COUNT(1) FROM messages m
		WHERE m.team_id = $1 AND m.sender_id <> $2
		  AND NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = m.id AND mr.user_id = $2)`
	var count int
	if err := r.db.QueryRow(ctx, query, teamID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", mapReadError(err))
	}
	return count, nil
}

// LastMessageTime returns when the team's newest message was posted.
func (r *Repository) LastMessageTime(ctx context.Context, teamID string) (*time.Time, error) {
	const query = `SELECT MAX(created_at) FROM messages WHERE team_id = $1`
	var ts *time.Time
	if err := r.db.QueryRow(ctx, query, teamID).Scan(&ts); err != nil {
		return nil, fmt.Errorf("last message time: %w", mapReadError(err))
	}
	return ts, nil
}
