package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ewittman/quad/internal/models"
)

type voiceSessionRepo struct {
	pool *pgxpool.Pool
}

func NewVoiceSessionRepository(pool *pgxpool.Pool) VoiceSessionRepository {
	return &voiceSessionRepo{pool: pool}
}

// Create inserts the session with the starter as its sole participant.
func (r *voiceSessionRepo) Create(ctx context.Context, session *models.VoiceSession) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO voice_sessions (id, channel_id, started_by, started_at)
		 VALUES ($1, $2, $3, $4)`,
		session.ID, session.ChannelID, session.StartedBy, session.StartedAt,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO voice_participants (session_id, user_id) VALUES ($1, $2)`,
		session.ID, session.StartedBy,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *voiceSessionRepo) GetByID(ctx context.Context, id int64) (*models.VoiceSession, error) {
	s := &models.VoiceSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, channel_id, started_by, started_at, ended_at
		 FROM voice_sessions
		 WHERE id = $1`, id,
	).Scan(&s.ID, &s.ChannelID, &s.StartedBy, &s.StartedAt, &s.EndedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *voiceSessionRepo) GetActiveByChannel(ctx context.Context, channelID int64) (*models.VoiceSession, error) {
	s := &models.VoiceSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, channel_id, started_by, started_at, ended_at
		 FROM voice_sessions
		 WHERE channel_id = $1 AND ended_at IS NULL
		 ORDER BY started_at DESC
		 LIMIT 1`, channelID,
	).Scan(&s.ID, &s.ChannelID, &s.StartedBy, &s.StartedAt, &s.EndedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *voiceSessionRepo) AddParticipant(ctx context.Context, sessionID, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO voice_participants (session_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (session_id, user_id) DO NOTHING`,
		sessionID, userID,
	)
	return err
}

// RemoveParticipant deletes the roster row and, when the roster empties,
// marks the session ended inside the same transaction so the terminal
// transition is atomic with the last leave.
func (r *voiceSessionRepo) RemoveParticipant(ctx context.Context, sessionID, userID int64) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM voice_participants WHERE session_id = $1 AND user_id = $2`,
		sessionID, userID,
	)
	if err != nil {
		return 0, err
	}

	var remaining int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM voice_participants WHERE session_id = $1`,
		sessionID,
	).Scan(&remaining)
	if err != nil {
		return 0, err
	}

	if remaining == 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE voice_sessions SET ended_at = NOW() WHERE id = $1 AND ended_at IS NULL`,
			sessionID,
		); err != nil {
			return 0, err
		}
	}

	return remaining, tx.Commit(ctx)
}

func (r *voiceSessionRepo) Participants(ctx context.Context, sessionID int64) ([]models.VoiceParticipant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, user_id, joined_at
		 FROM voice_participants
		 WHERE session_id = $1
		 ORDER BY joined_at`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []models.VoiceParticipant
	for rows.Next() {
		var p models.VoiceParticipant
		if err := rows.Scan(&p.SessionID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
