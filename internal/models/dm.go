package models

import "time"

// DMConversation is a direct-message thread between two users, or a named
// group of them.
type DMConversation struct {
	ID             int64     `json:"id,string"`
	Group          bool      `json:"group"`
	Name           *string   `json:"name,omitempty"`
	Participants   []User    `json:"participants"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}
