package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ewittman/quad/internal/models"
)

type reactionRepo struct {
	pool *pgxpool.Pool
}

func NewReactionRepository(pool *pgxpool.Pool) ReactionRepository {
	return &reactionRepo{pool: pool}
}

// Toggle flips the tuple inside one transaction: delete-if-exists, else
// insert. The unique constraint on (message_id, user_id, emoji) makes this
// safe under concurrent toggles by different users.
func (r *reactionRepo) Toggle(ctx context.Context, messageID, userID int64, emoji string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji,
	)
	if err != nil {
		return false, err
	}

	added := false
	if tag.RowsAffected() == 0 {
		// Nothing to remove; this toggle is an add. ON CONFLICT keeps a
		// lost race against a concurrent identical add harmless.
		if _, err := tx.Exec(ctx,
			`INSERT INTO reactions (message_id, user_id, emoji)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (message_id, user_id, emoji) DO NOTHING`,
			messageID, userID, emoji,
		); err != nil {
			return false, err
		}
		added = true
	}

	return added, tx.Commit(ctx)
}

func (r *reactionRepo) GroupsByMessage(ctx context.Context, messageID, currentUserID int64) ([]models.ReactionGroup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT emoji,
		        COUNT(*) AS count,
		        BOOL_OR(user_id = $2) AS me,
		        ARRAY_AGG(user_id ORDER BY created_at) AS user_ids
		 FROM reactions
		 WHERE message_id = $1
		 GROUP BY emoji
		 ORDER BY MIN(created_at)`,
		messageID, currentUserID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.ReactionGroup
	for rows.Next() {
		var g models.ReactionGroup
		if err := rows.Scan(&g.Emoji, &g.Count, &g.Me, &g.UserIDs); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *reactionRepo) UsersByEmoji(ctx context.Context, messageID int64, emoji string, limit int) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id
		 FROM reactions
		 WHERE message_id = $1 AND emoji = $2
		 ORDER BY created_at
		 LIMIT $3`,
		messageID, emoji, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, uid)
	}
	return userIDs, rows.Err()
}
