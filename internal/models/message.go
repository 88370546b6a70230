package models

import "time"

type Message struct {
	ID               int64      `json:"id,string"`
	ChannelID        *int64     `json:"channel_id,string,omitempty"`
	DMConversationID *int64     `json:"dm_conversation_id,string,omitempty"`
	AuthorID         int64      `json:"author_id,string"`
	Content          string     `json:"content"`
	ReplyToID        *int64     `json:"reply_to_id,string,omitempty"`
	Edited           bool       `json:"edited"`
	EditedAt         *time.Time `json:"edited_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Ref returns the conversation reference this message belongs to.
func (m *Message) Ref() ConversationRef {
	return ConversationRef{ChannelID: m.ChannelID, DMConversationID: m.DMConversationID}
}

// MessageWithMeta is a message joined with author display fields and
// its attachment list, as served to clients.
type MessageWithMeta struct {
	Message
	AuthorUsername    string       `json:"author_username"`
	AuthorDisplayName string       `json:"author_display_name"`
	Attachments       []Attachment `json:"attachments,omitempty"`
}
