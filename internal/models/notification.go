package models

import "time"

type Notification struct {
	ID        int64          `json:"id,string"`
	UserID    int64          `json:"user_id,string"`
	Kind      string         `json:"kind"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}
