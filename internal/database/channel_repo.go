package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ewittman/quad/internal/models"
)

type channelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &channelRepo{pool: pool}
}

func (r *channelRepo) Create(ctx context.Context, channel *models.Channel) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO channels (id, community_id, name, kind, private, position, topic, last_activity_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		channel.ID, channel.CommunityID, channel.Name, channel.Kind,
		channel.Private, channel.Position, channel.Topic, channel.LastActivityAt,
	)
	return err
}

func (r *channelRepo) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	c := &models.Channel{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, community_id, name, kind, private, position, topic, last_activity_at
		 FROM channels
		 WHERE id = $1`, id,
	).Scan(&c.ID, &c.CommunityID, &c.Name, &c.Kind, &c.Private, &c.Position, &c.Topic, &c.LastActivityAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *channelRepo) GetByCommunityID(ctx context.Context, communityID int64) ([]models.Channel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, community_id, name, kind, private, position, topic, last_activity_at
		 FROM channels
		 WHERE community_id = $1
		 ORDER BY position, id`,
		communityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var c models.Channel
		if err := rows.Scan(&c.ID, &c.CommunityID, &c.Name, &c.Kind, &c.Private, &c.Position, &c.Topic, &c.LastActivityAt); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func (r *channelRepo) TouchActivity(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE channels SET last_activity_at = GREATEST(last_activity_at, $2) WHERE id = $1`,
		id, at,
	)
	return err
}

func (r *channelRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	return err
}
