package gateway

import (
	"encoding/json"

	"github.com/ewittman/quad/internal/models"
)

// Op codes for gateway payloads.
const (
	OpDispatch       = 0
	OpHeartbeat      = 1
	OpIdentify       = 2
	OpPresenceUpdate = 3
	OpResume         = 6
	OpReconnect      = 7
	OpHello          = 10
	OpHeartbeatAck   = 11
)

// Event names for DISPATCH payloads.
const (
	EventReady                 = "READY"
	EventMessageCreate         = "MESSAGE_CREATE"
	EventMessageUpdate         = "MESSAGE_UPDATE"
	EventMessageDelete         = "MESSAGE_DELETE"
	EventMessageReactionUpdate = "MESSAGE_REACTION_UPDATE"
	EventChannelCreate         = "CHANNEL_CREATE"
	EventChannelDelete         = "CHANNEL_DELETE"
	EventDMCreate              = "DM_CREATE"
	EventTypingStart           = "TYPING_START"
	EventTypingStop            = "TYPING_STOP"
	EventPresenceUpdate        = "PRESENCE_UPDATE"
	EventReadCursorUpdate      = "READ_CURSOR_UPDATE"
	EventVoiceSessionStart     = "VOICE_SESSION_START"
	EventVoiceSessionEnd       = "VOICE_SESSION_END"
	EventVoiceRosterUpdate     = "VOICE_ROSTER_UPDATE"
)

// TopicKind discriminates what a Topic addresses.
type TopicKind string

const (
	TopicChannel TopicKind = "channel"
	TopicDM      TopicKind = "dm"
	TopicUser    TopicKind = "user"
)

// Topic identifies a fan-out routing target: every event is dispatched to
// exactly one topic, and subscribers receive the events of the topics they
// are subscribed to, in dispatch order per topic. No ordering is promised
// across topics.
type Topic struct {
	Kind TopicKind `json:"kind"`
	ID   int64     `json:"id,string"`
}

// ChannelTopic addresses everyone subscribed to a community channel.
func ChannelTopic(channelID int64) Topic {
	return Topic{Kind: TopicChannel, ID: channelID}
}

// DMTopic addresses the participants of a DM conversation.
func DMTopic(dmID int64) Topic {
	return Topic{Kind: TopicDM, ID: dmID}
}

// UserTopic addresses a single user across all their connections.
func UserTopic(userID int64) Topic {
	return Topic{Kind: TopicUser, ID: userID}
}

// ConversationTopic maps a conversation ref to its fan-out topic.
func ConversationTopic(ref models.ConversationRef) Topic {
	if ref.IsDM() {
		return DMTopic(ref.ID())
	}
	return ChannelTopic(ref.ID())
}

// ChangeKind discriminates a Change event.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Change is the discriminated payload every dispatch carries: what happened
// to an entity, with the entity state before and/or after. Inserts carry
// only After, deletes only Before, updates both.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Before any        `json:"before,omitempty"`
	After  any        `json:"after,omitempty"`
}

// Inserted builds an insert Change.
func Inserted(after any) Change {
	return Change{Kind: ChangeInsert, After: after}
}

// Updated builds an update Change.
func Updated(before, after any) Change {
	return Change{Kind: ChangeUpdate, Before: before, After: after}
}

// Deleted builds a delete Change.
func Deleted(before any) Change {
	return Change{Kind: ChangeDelete, Before: before}
}

// GatewayPayload is the envelope for all gateway messages.
type GatewayPayload struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Event    *string         `json:"t,omitempty"`
}

// IdentifyData is sent by the client in an Op 2 IDENTIFY.
type IdentifyData struct {
	Token string `json:"token"`
}

// ResumeData is sent by the client in an Op 6 RESUME.
type ResumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"seq"`
}

// HelloData is sent by the server after WebSocket connect.
type HelloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

// ReadyData is sent by the server after successful IDENTIFY.
type ReadyData struct {
	SessionID   string              `json:"session_id"`
	UserID      int64               `json:"user_id,string"`
	Channels    []int64             `json:"channels"`
	DMs         []int64             `json:"dms"`
	ReadCursors []models.ReadCursor `json:"read_cursors"`
}

// Event pairs a dispatch event name with its change payload.
type Event struct {
	Name   string
	Change Change
}

// TypingData is the payload inside TYPING_START and TYPING_STOP changes.
type TypingData struct {
	Conversation models.ConversationRef `json:"conversation"`
	UserID       int64                  `json:"user_id,string"`
	Timestamp    int64                  `json:"timestamp"`
}

// PresenceData is the payload inside PRESENCE_UPDATE changes.
type PresenceData struct {
	UserID int64  `json:"user_id,string"`
	Status string `json:"status"`
}

// ClientPresenceUpdate is sent by the client in an Op 3 PRESENCE_UPDATE.
type ClientPresenceUpdate struct {
	Status string `json:"status"`
}
