package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ewittman/quad/internal/models"
)

type readCursorRepo struct {
	pool *pgxpool.Pool
}

func NewReadCursorRepository(pool *pgxpool.Pool) ReadCursorRepository {
	return &readCursorRepo{pool: pool}
}

// Upsert advances the cursor monotonically: GREATEST keeps an out-of-order
// mark-read from moving the cursor backward.
func (r *readCursorRepo) Upsert(ctx context.Context, ref models.ConversationRef, userID int64, at time.Time) error {
	var err error
	if ref.IsDM() {
		_, err = r.pool.Exec(ctx,
			`INSERT INTO read_cursors (user_id, dm_conversation_id, last_read_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, dm_conversation_id) WHERE dm_conversation_id IS NOT NULL
			 DO UPDATE SET last_read_at = GREATEST(read_cursors.last_read_at, EXCLUDED.last_read_at)`,
			userID, ref.DMConversationID, at,
		)
	} else {
		_, err = r.pool.Exec(ctx,
			`INSERT INTO read_cursors (user_id, channel_id, last_read_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, channel_id) WHERE channel_id IS NOT NULL
			 DO UPDATE SET last_read_at = GREATEST(read_cursors.last_read_at, EXCLUDED.last_read_at)`,
			userID, ref.ChannelID, at,
		)
	}
	return err
}

func (r *readCursorRepo) Get(ctx context.Context, ref models.ConversationRef, userID int64) (*models.ReadCursor, error) {
	c := &models.ReadCursor{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, channel_id, dm_conversation_id, last_read_at
		 FROM read_cursors
		 WHERE user_id = $1 AND (channel_id = $2 OR dm_conversation_id = $3)`,
		userID, ref.ChannelID, ref.DMConversationID,
	).Scan(&c.UserID, &c.ChannelID, &c.DMConversationID, &c.LastReadAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *readCursorRepo) GetByUser(ctx context.Context, userID int64) ([]models.ReadCursor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, channel_id, dm_conversation_id, last_read_at
		 FROM read_cursors
		 WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cursors []models.ReadCursor
	for rows.Next() {
		var c models.ReadCursor
		if err := rows.Scan(&c.UserID, &c.ChannelID, &c.DMConversationID, &c.LastReadAt); err != nil {
			return nil, err
		}
		cursors = append(cursors, c)
	}
	return cursors, rows.Err()
}

// TotalUnread counts unread messages across every channel of the user's
// communities and every DM the user participates in, in one query. A
// missing cursor row means the whole conversation is unread.
func (r *readCursorRepo) TotalUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM messages m
		 LEFT JOIN read_cursors rc
		   ON rc.user_id = $1
		  AND (rc.channel_id = m.channel_id OR rc.dm_conversation_id = m.dm_conversation_id)
		 WHERE (
		     m.channel_id IN (
		         SELECT c.id FROM channels c
		         INNER JOIN community_members cm ON cm.community_id = c.community_id
		         WHERE cm.user_id = $1
		     )
		     OR m.dm_conversation_id IN (
		         SELECT dm_conversation_id FROM dm_participants WHERE user_id = $1
		     )
		 )
		 AND m.author_id <> $1
		 AND (rc.last_read_at IS NULL OR m.created_at > rc.last_read_at)`,
		userID,
	).Scan(&count)
	return count, err
}
