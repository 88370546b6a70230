package models

import "time"

// Reaction is one (message, user, emoji) tuple. The reactions table carries
// a UNIQUE(message_id, user_id, emoji) constraint, so toggling is
// delete-if-exists else insert with no read-modify-write.
type Reaction struct {
	MessageID int64     `json:"message_id,string"`
	UserID    int64     `json:"user_id,string"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionGroup is the derived aggregate for one emoji on a message.
type ReactionGroup struct {
	Emoji   string  `json:"emoji"`
	Count   int     `json:"count"`
	Me      bool    `json:"me"`
	UserIDs []int64 `json:"user_ids"`
}
