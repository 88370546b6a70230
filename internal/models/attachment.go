package models

// Attachment represents a file attached to a message. The object itself
// lives in MinIO under StorageKey; only metadata is stored here.
type Attachment struct {
	ID          int64  `json:"id,string"`
	MessageID   *int64 `json:"message_id,string,omitempty"`
	UploaderID  int64  `json:"uploader_id,string"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	StorageKey  string `json:"-"`
	URL         string `json:"url"`
}
