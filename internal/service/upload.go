package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ewittman/quad/internal/database"
	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/snowflake"
)

const maxUploadSize = 10 << 20 // 10 MB

var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
}

// FileStorage abstracts object storage operations for testability.
type FileStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetURL(key string) string
	Delete(ctx context.Context, key string) error
}

// UploadService handles file uploads. An upload starts unattached; a later
// send claims it for a message.
type UploadService struct {
	attachments database.AttachmentRepository
	snowflake   *snowflake.Generator
	storage     FileStorage
}

// NewUploadService creates an UploadService.
func NewUploadService(
	attachments database.AttachmentRepository,
	sf *snowflake.Generator,
	storage FileStorage,
) *UploadService {
	return &UploadService{
		attachments: attachments,
		snowflake:   sf,
		storage:     storage,
	}
}

// UploadFile stores a file and records its metadata, unbound to any message.
func (s *UploadService) UploadFile(ctx context.Context, userID int64, filename string, size int64, contentType string, reader io.Reader) (*models.Attachment, error) {
	if size > maxUploadSize {
		return nil, BadRequest("FILE_TOO_LARGE", "file must be under 10 MB")
	}
	if !isAllowedContentType(contentType) {
		return nil, BadRequest("INVALID_CONTENT_TYPE", "file type not allowed")
	}

	attachmentID := s.snowflake.Next().Int64()
	cleanFilename := filepath.Base(filename)
	storageKey := fmt.Sprintf("attachments/%d/%d/%s", userID, attachmentID, cleanFilename)

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	if err := s.storage.Upload(callCtx, storageKey, reader, size, contentType); err != nil {
		return nil, NewError(ErrInternal, "UPLOAD_FAILED", "failed to upload file")
	}

	attachment := &models.Attachment{
		ID:          attachmentID,
		UploaderID:  userID,
		Filename:    cleanFilename,
		ContentType: contentType,
		Size:        size,
		StorageKey:  storageKey,
		URL:         s.storage.GetURL(storageKey),
	}

	if err := s.attachments.Create(callCtx, attachment); err != nil {
		return nil, storeFail(err)
	}

	return attachment, nil
}

func isAllowedContentType(ct string) bool {
	if allowedContentTypes[ct] {
		return true
	}
	if strings.HasPrefix(ct, "image/") {
		return true
	}
	return false
}
