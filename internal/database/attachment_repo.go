package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ewittman/quad/internal/models"
)

type attachmentRepo struct {
	pool *pgxpool.Pool
}

func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepo{pool: pool}
}

func (r *attachmentRepo) Create(ctx context.Context, attachment *models.Attachment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attachments (id, message_id, uploader_id, filename, content_type, size, storage_key, url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		attachment.ID, attachment.MessageID, attachment.UploaderID, attachment.Filename,
		attachment.ContentType, attachment.Size, attachment.StorageKey, attachment.URL,
	)
	return err
}

func (r *attachmentRepo) GetByID(ctx context.Context, id int64) (*models.Attachment, error) {
	a := &models.Attachment{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, message_id, uploader_id, filename, content_type, size, storage_key, url
		 FROM attachments WHERE id = $1`, id,
	).Scan(&a.ID, &a.MessageID, &a.UploaderID, &a.Filename, &a.ContentType, &a.Size, &a.StorageKey, &a.URL)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *attachmentRepo) GetByMessageID(ctx context.Context, messageID int64) ([]models.Attachment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, message_id, uploader_id, filename, content_type, size, storage_key, url
		 FROM attachments
		 WHERE message_id = $1
		 ORDER BY id`,
		messageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttachments(rows)
}

func (r *attachmentRepo) GetByMessageIDs(ctx context.Context, messageIDs []int64) (map[int64][]models.Attachment, error) {
	if len(messageIDs) == 0 {
		return map[int64][]models.Attachment{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, message_id, uploader_id, filename, content_type, size, storage_key, url
		 FROM attachments
		 WHERE message_id = ANY($1)
		 ORDER BY id`,
		messageIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attachments, err := scanAttachments(rows)
	if err != nil {
		return nil, err
	}

	byMessage := make(map[int64][]models.Attachment, len(messageIDs))
	for _, a := range attachments {
		if a.MessageID != nil {
			byMessage[*a.MessageID] = append(byMessage[*a.MessageID], a)
		}
	}
	return byMessage, nil
}

// Claim binds unattached uploads to a message. The message_id IS NULL guard
// keeps an attachment from being stolen off another message.
func (r *attachmentRepo) Claim(ctx context.Context, messageID, uploaderID int64, attachmentIDs []int64) error {
	if len(attachmentIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE attachments SET message_id = $1
		 WHERE id = ANY($3) AND uploader_id = $2 AND message_id IS NULL`,
		messageID, uploaderID, attachmentIDs,
	)
	return err
}

func (r *attachmentRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	return err
}

func scanAttachments(rows pgx.Rows) ([]models.Attachment, error) {
	var attachments []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.MessageID, &a.UploaderID, &a.Filename, &a.ContentType, &a.Size, &a.StorageKey, &a.URL); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}
