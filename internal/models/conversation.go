package models

import "errors"

// ErrInvalidConversationRef is returned when a ConversationRef does not
// identify exactly one conversation.
var ErrInvalidConversationRef = errors.New("conversation ref must set exactly one of channel_id, dm_conversation_id")

// ConversationRef addresses the context a message belongs to: either a
// community channel or a direct-message conversation, never both.
type ConversationRef struct {
	ChannelID        *int64 `json:"channel_id,string,omitempty"`
	DMConversationID *int64 `json:"dm_conversation_id,string,omitempty"`
}

// ChannelRef returns a ref addressing a community channel.
func ChannelRef(channelID int64) ConversationRef {
	return ConversationRef{ChannelID: &channelID}
}

// DMRef returns a ref addressing a direct-message conversation.
func DMRef(dmID int64) ConversationRef {
	return ConversationRef{DMConversationID: &dmID}
}

// Validate checks the exactly-one invariant.
func (r ConversationRef) Validate() error {
	if (r.ChannelID == nil) == (r.DMConversationID == nil) {
		return ErrInvalidConversationRef
	}
	return nil
}

// Equal reports whether both refs address the same conversation. Pointer
// fields make == compare identities, so always compare refs with this.
func (r ConversationRef) Equal(o ConversationRef) bool {
	return r.IsDM() == o.IsDM() && r.ID() == o.ID()
}

// IsDM reports whether the ref addresses a DM conversation.
func (r ConversationRef) IsDM() bool {
	return r.DMConversationID != nil
}

// ID returns the identifier of whichever conversation is set.
func (r ConversationRef) ID() int64 {
	if r.ChannelID != nil {
		return *r.ChannelID
	}
	if r.DMConversationID != nil {
		return *r.DMConversationID
	}
	return 0
}
