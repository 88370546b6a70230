package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ewittman/quad/internal/models"
)

type messageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepo{pool: pool}
}

func (r *messageRepo) Create(ctx context.Context, msg *models.Message) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, channel_id, dm_conversation_id, author_id, content, reply_to_id, edited, edited_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		msg.ID, msg.ChannelID, msg.DMConversationID, msg.AuthorID, msg.Content,
		msg.ReplyToID, msg.Edited, msg.EditedAt, msg.CreatedAt,
	)
	return err
}

func (r *messageRepo) GetByID(ctx context.Context, id int64) (*models.MessageWithMeta, error) {
	m := &models.MessageWithMeta{}
	err := r.pool.QueryRow(ctx,
		`SELECT m.id, m.channel_id, m.dm_conversation_id, m.author_id, m.content,
		        m.reply_to_id, m.edited, m.edited_at, m.created_at,
		        u.username, u.display_name
		 FROM messages m
		 INNER JOIN users u ON u.id = m.author_id
		 WHERE m.id = $1`, id,
	).Scan(
		&m.ID, &m.ChannelID, &m.DMConversationID, &m.AuthorID, &m.Content,
		&m.ReplyToID, &m.Edited, &m.EditedAt, &m.CreatedAt,
		&m.AuthorUsername, &m.AuthorDisplayName,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *messageRepo) ListByConversation(ctx context.Context, ref models.ConversationRef, before *int64, limit int) ([]models.MessageWithMeta, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.channel_id, m.dm_conversation_id, m.author_id, m.content,
		        m.reply_to_id, m.edited, m.edited_at, m.created_at,
		        u.username, u.display_name
		 FROM messages m
		 INNER JOIN users u ON u.id = m.author_id
		 WHERE (m.channel_id = $1 OR m.dm_conversation_id = $2)
		   AND ($3::BIGINT IS NULL OR m.id < $3)
		 ORDER BY m.id DESC
		 LIMIT $4`,
		ref.ChannelID, ref.DMConversationID, before, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.MessageWithMeta
	for rows.Next() {
		var m models.MessageWithMeta
		if err := rows.Scan(
			&m.ID, &m.ChannelID, &m.DMConversationID, &m.AuthorID, &m.Content,
			&m.ReplyToID, &m.Edited, &m.EditedAt, &m.CreatedAt,
			&m.AuthorUsername, &m.AuthorDisplayName,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *messageRepo) CountSince(ctx context.Context, ref models.ConversationRef, after time.Time, excludeAuthorID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM messages
		 WHERE (channel_id = $1 OR dm_conversation_id = $2)
		   AND created_at > $3
		   AND author_id <> $4`,
		ref.ChannelID, ref.DMConversationID, after, excludeAuthorID,
	).Scan(&count)
	return count, err
}

func (r *messageRepo) Update(ctx context.Context, msg *models.Message) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE messages SET content = $2, edited = $3, edited_at = $4
		 WHERE id = $1`,
		msg.ID, msg.Content, msg.Edited, msg.EditedAt,
	)
	return err
}

func (r *messageRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	return err
}
