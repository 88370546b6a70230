package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ewittman/quad/internal/models"
)

type communityRepo struct {
	pool *pgxpool.Pool
}

func NewCommunityRepository(pool *pgxpool.Pool) CommunityRepository {
	return &communityRepo{pool: pool}
}

// Create inserts the community and enrolls the owner as its first member.
func (r *communityRepo) Create(ctx context.Context, community *models.Community) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO communities (id, name, owner_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		community.ID, community.Name, community.OwnerID, community.CreatedAt,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO community_members (community_id, user_id) VALUES ($1, $2)`,
		community.ID, community.OwnerID,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *communityRepo) GetByID(ctx context.Context, id int64) (*models.Community, error) {
	c := &models.Community{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, owner_id, created_at FROM communities WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *communityRepo) GetByMember(ctx context.Context, userID int64) ([]models.Community, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, c.owner_id, c.created_at
		 FROM communities c
		 INNER JOIN community_members cm ON cm.community_id = c.id
		 WHERE cm.user_id = $1
		 ORDER BY c.created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var communities []models.Community
	for rows.Next() {
		var c models.Community
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt); err != nil {
			return nil, err
		}
		communities = append(communities, c)
	}
	return communities, rows.Err()
}

func (r *communityRepo) AddMember(ctx context.Context, communityID, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO community_members (community_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (community_id, user_id) DO NOTHING`,
		communityID, userID,
	)
	return err
}

func (r *communityRepo) RemoveMember(ctx context.Context, communityID, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM community_members WHERE community_id = $1 AND user_id = $2`,
		communityID, userID,
	)
	return err
}

func (r *communityRepo) IsMember(ctx context.Context, communityID, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM community_members WHERE community_id = $1 AND user_id = $2
		 )`,
		communityID, userID,
	).Scan(&exists)
	return exists, err
}

func (r *communityRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM communities WHERE id = $1`, id)
	return err
}
