package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ewittman/quad/internal/models"
)

type dmConversationRepo struct {
	pool *pgxpool.Pool
}

func NewDMConversationRepository(pool *pgxpool.Pool) DMConversationRepository {
	return &dmConversationRepo{pool: pool}
}

func (r *dmConversationRepo) Create(ctx context.Context, dm *models.DMConversation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO dm_conversations (id, is_group, name, created_at, last_activity_at)
		 VALUES ($1, $2, $3, $4, $4)`,
		dm.ID, dm.Group, dm.Name, dm.CreatedAt,
	)
	if err != nil {
		return err
	}

	for _, p := range dm.Participants {
		_, err = tx.Exec(ctx,
			`INSERT INTO dm_participants (dm_conversation_id, user_id) VALUES ($1, $2)`,
			dm.ID, p.ID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *dmConversationRepo) GetByID(ctx context.Context, id int64) (*models.DMConversation, error) {
	dm := &models.DMConversation{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, is_group, name, created_at, last_activity_at
		 FROM dm_conversations
		 WHERE id = $1`, id,
	).Scan(&dm.ID, &dm.Group, &dm.Name, &dm.CreatedAt, &dm.LastActivityAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	participants, err := r.getParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	dm.Participants = participants
	return dm, nil
}

func (r *dmConversationRepo) GetByParticipant(ctx context.Context, userID int64) ([]models.DMConversation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT dc.id, dc.is_group, dc.name, dc.created_at, dc.last_activity_at
		 FROM dm_conversations dc
		 INNER JOIN dm_participants dp ON dp.dm_conversation_id = dc.id
		 WHERE dp.user_id = $1
		 ORDER BY dc.last_activity_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.DMConversation
	for rows.Next() {
		var dm models.DMConversation
		if err := rows.Scan(&dm.ID, &dm.Group, &dm.Name, &dm.CreatedAt, &dm.LastActivityAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, dm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range conversations {
		participants, err := r.getParticipants(ctx, conversations[i].ID)
		if err != nil {
			return nil, err
		}
		conversations[i].Participants = participants
	}

	return conversations, nil
}

// GetOrCreateDirect finds the 1:1 conversation between two users, creating
// it with newID when none exists yet.
func (r *dmConversationRepo) GetOrCreateDirect(ctx context.Context, user1ID, user2ID, newID int64) (*models.DMConversation, error) {
	var existingID int64
	err := r.pool.QueryRow(ctx,
		`SELECT dp1.dm_conversation_id
		 FROM dm_participants dp1
		 INNER JOIN dm_participants dp2 ON dp1.dm_conversation_id = dp2.dm_conversation_id
		 INNER JOIN dm_conversations dc ON dc.id = dp1.dm_conversation_id
		 WHERE dp1.user_id = $1 AND dp2.user_id = $2 AND NOT dc.is_group`,
		user1ID, user2ID,
	).Scan(&existingID)

	if err == nil {
		return r.GetByID(ctx, existingID)
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	dm := &models.DMConversation{
		ID:        newID,
		Group:     false,
		CreatedAt: time.Now(),
		Participants: []models.User{
			{ID: user1ID},
			{ID: user2ID},
		},
	}
	if err := r.Create(ctx, dm); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, newID)
}

func (r *dmConversationRepo) IsParticipant(ctx context.Context, dmID, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM dm_participants WHERE dm_conversation_id = $1 AND user_id = $2
		 )`,
		dmID, userID,
	).Scan(&exists)
	return exists, err
}

func (r *dmConversationRepo) TouchActivity(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE dm_conversations SET last_activity_at = GREATEST(last_activity_at, $2) WHERE id = $1`,
		id, at,
	)
	return err
}

func (r *dmConversationRepo) getParticipants(ctx context.Context, dmID int64) ([]models.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.username, u.display_name, u.created_at
		 FROM users u
		 INNER JOIN dm_participants dp ON dp.user_id = u.id
		 WHERE dp.dm_conversation_id = $1
		 ORDER BY u.id`,
		dmID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
