package models

import "time"

// ReadCursor marks the point up to which a user has viewed a conversation.
// Absence of a row means the conversation has never been viewed and every
// message in it counts as unread.
type ReadCursor struct {
	UserID           int64     `json:"user_id,string"`
	ChannelID        *int64    `json:"channel_id,string,omitempty"`
	DMConversationID *int64    `json:"dm_conversation_id,string,omitempty"`
	LastReadAt       time.Time `json:"last_read_at"`
}

// Ref returns the conversation this cursor belongs to.
func (c *ReadCursor) Ref() ConversationRef {
	return ConversationRef{ChannelID: c.ChannelID, DMConversationID: c.DMConversationID}
}

// UnreadInfo carries a per-conversation unread count for sidebar badges.
type UnreadInfo struct {
	ChannelID        *int64 `json:"channel_id,string,omitempty"`
	DMConversationID *int64 `json:"dm_conversation_id,string,omitempty"`
	UnreadCount      int    `json:"unread_count"`
}
