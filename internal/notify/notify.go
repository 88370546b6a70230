// Package notify is the notification-sink capability. The messaging core
// records notifications here as a side effect (a new DM, for instance);
// how they reach a device is someone else's problem.
package notify

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/snowflake"
)

// Sink receives notifications produced by the messaging core.
type Sink interface {
	CreateNotification(ctx context.Context, userID int64, kind, title, body string, metadata map[string]any) error
}

// Store is a Postgres-backed Sink.
type Store struct {
	pool      *pgxpool.Pool
	snowflake *snowflake.Generator
}

// NewStore creates a Postgres-backed notification sink.
func NewStore(pool *pgxpool.Pool, sf *snowflake.Generator) *Store {
	return &Store{pool: pool, snowflake: sf}
}

func (s *Store) CreateNotification(ctx context.Context, userID int64, kind, title, body string, metadata map[string]any) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, kind, title, body, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.snowflake.Next().Int64(), userID, kind, title, body, metadata, time.Now(),
	)
	return err
}

// ListByUser returns the newest notifications for a user.
func (s *Store) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, kind, title, body, metadata, read, created_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.Metadata, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead flags a notification as read.
func (s *Store) MarkRead(ctx context.Context, userID, notificationID int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	return err
}
