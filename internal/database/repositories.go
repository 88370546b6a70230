package database

import (
	"context"
	"time"

	"github.com/ewittman/quad/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

type CommunityRepository interface {
	Create(ctx context.Context, community *models.Community) error
	GetByID(ctx context.Context, id int64) (*models.Community, error)
	GetByMember(ctx context.Context, userID int64) ([]models.Community, error)
	AddMember(ctx context.Context, communityID, userID int64) error
	RemoveMember(ctx context.Context, communityID, userID int64) error
	IsMember(ctx context.Context, communityID, userID int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id int64) (*models.Channel, error)
	GetByCommunityID(ctx context.Context, communityID int64) ([]models.Channel, error)
	TouchActivity(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

type DMConversationRepository interface {
	Create(ctx context.Context, dm *models.DMConversation) error
	GetByID(ctx context.Context, id int64) (*models.DMConversation, error)
	GetByParticipant(ctx context.Context, userID int64) ([]models.DMConversation, error)
	GetOrCreateDirect(ctx context.Context, user1ID, user2ID, newID int64) (*models.DMConversation, error)
	IsParticipant(ctx context.Context, dmID, userID int64) (bool, error)
	TouchActivity(ctx context.Context, id int64, at time.Time) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id int64) (*models.MessageWithMeta, error)
	// ListByConversation returns up to limit messages strictly before the
	// cursor (all messages when the cursor is nil), newest first.
	ListByConversation(ctx context.Context, ref models.ConversationRef, before *int64, limit int) ([]models.MessageWithMeta, error)
	// CountSince counts messages in the conversation created strictly
	// after the given instant, excluding those authored by excludeAuthorID
	// (a user's own messages are never unread for them).
	CountSince(ctx context.Context, ref models.ConversationRef, after time.Time, excludeAuthorID int64) (int, error)
	Update(ctx context.Context, msg *models.Message) error
	Delete(ctx context.Context, id int64) error
}

type ReactionRepository interface {
	// Toggle atomically flips the (message, user, emoji) tuple and reports
	// whether the tuple exists afterwards. Concurrent toggles by different
	// users never clobber each other; uniqueness is enforced by the store.
	Toggle(ctx context.Context, messageID, userID int64, emoji string) (added bool, err error)
	GroupsByMessage(ctx context.Context, messageID, currentUserID int64) ([]models.ReactionGroup, error)
	UsersByEmoji(ctx context.Context, messageID int64, emoji string, limit int) ([]int64, error)
}

type ReadCursorRepository interface {
	// Upsert advances the cursor to max(existing, at); it never moves the
	// cursor backward.
	Upsert(ctx context.Context, ref models.ConversationRef, userID int64, at time.Time) error
	Get(ctx context.Context, ref models.ConversationRef, userID int64) (*models.ReadCursor, error)
	GetByUser(ctx context.Context, userID int64) ([]models.ReadCursor, error)
	// TotalUnread counts unread messages across every conversation the
	// user participates in, in a single query.
	TotalUnread(ctx context.Context, userID int64) (int, error)
}

type VoiceSessionRepository interface {
	Create(ctx context.Context, session *models.VoiceSession) error
	GetByID(ctx context.Context, id int64) (*models.VoiceSession, error)
	GetActiveByChannel(ctx context.Context, channelID int64) (*models.VoiceSession, error)
	AddParticipant(ctx context.Context, sessionID, userID int64) error
	// RemoveParticipant removes the user from the roster and returns the
	// remaining participant count. An emptied session is marked ended in
	// the same transaction.
	RemoveParticipant(ctx context.Context, sessionID, userID int64) (remaining int, err error)
	Participants(ctx context.Context, sessionID int64) ([]models.VoiceParticipant, error)
}

type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	GetByID(ctx context.Context, id int64) (*models.Attachment, error)
	GetByMessageID(ctx context.Context, messageID int64) ([]models.Attachment, error)
	GetByMessageIDs(ctx context.Context, messageIDs []int64) (map[int64][]models.Attachment, error)
	// Claim binds previously uploaded, unattached files to a message.
	// Attachments already claimed by another message are left untouched.
	Claim(ctx context.Context, messageID, uploaderID int64, attachmentIDs []int64) error
	Delete(ctx context.Context, id int64) error
}
