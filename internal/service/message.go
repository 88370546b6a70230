package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ewittman/quad/internal/database"
	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/metrics"
	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/notify"
	"github.com/ewittman/quad/internal/snowflake"
)

const (
	maxContentLength = 4000
	defaultPageSize  = 50
	maxPageSize      = 100
)

// MessageService owns create/read/edit/delete of messages in any
// conversation, channel or DM alike.
type MessageService struct {
	messages    database.MessageRepository
	attachments database.AttachmentRepository
	channels    database.ChannelRepository
	dms         database.DMConversationRepository
	resolver    *conversationResolver
	snowflake   *snowflake.Generator
	gateway     gateway.Dispatcher
	notifier    notify.Sink
}

// NewMessageService creates a MessageService.
func NewMessageService(
	messages database.MessageRepository,
	attachments database.AttachmentRepository,
	channels database.ChannelRepository,
	communities database.CommunityRepository,
	dms database.DMConversationRepository,
	sf *snowflake.Generator,
	gw gateway.Dispatcher,
	notifier notify.Sink,
) *MessageService {
	return &MessageService{
		messages:    messages,
		attachments: attachments,
		channels:    channels,
		dms:         dms,
		resolver:    newConversationResolver(channels, communities, dms),
		snowflake:   sf,
		gateway:     gw,
		notifier:    notifier,
	}
}

// SendInput carries the fields of a send request.
type SendInput struct {
	Content       string
	ReplyToID     *int64
	AttachmentIDs []int64
}

// Send creates a message in the conversation and fans it out.
func (s *MessageService) Send(ctx context.Context, ref models.ConversationRef, userID int64, in SendInput) (*models.MessageWithMeta, error) {
	rc, err := s.resolver.resolve(ctx, ref, userID)
	if err != nil {
		return nil, err
	}

	if len(in.Content) == 0 && len(in.AttachmentIDs) == 0 {
		return nil, BadRequest("EMPTY_MESSAGE", "message needs content or attachments")
	}
	if len(in.Content) > maxContentLength {
		return nil, BadRequest("INVALID_CONTENT", "message content must be at most 4000 characters")
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	if in.ReplyToID != nil {
		parent, err := s.messages.GetByID(callCtx, *in.ReplyToID)
		if err != nil {
			return nil, storeFail(err)
		}
		if parent == nil || !parent.Ref().Equal(ref) {
			return nil, BadRequest("INVALID_REPLY", "reply target must be in the same conversation")
		}
	}

	now := time.Now()
	msg := &models.Message{
		ID:               s.snowflake.Next().Int64(),
		ChannelID:        ref.ChannelID,
		DMConversationID: ref.DMConversationID,
		AuthorID:         userID,
		Content:          in.Content,
		ReplyToID:        in.ReplyToID,
		CreatedAt:        now,
	}

	if err := s.messages.Create(callCtx, msg); err != nil {
		return nil, storeFail(err)
	}

	if len(in.AttachmentIDs) > 0 {
		if err := s.attachments.Claim(callCtx, msg.ID, userID, in.AttachmentIDs); err != nil {
			return nil, storeFail(err)
		}
	}

	s.touchActivity(callCtx, rc, now)

	full, err := s.messages.GetByID(callCtx, msg.ID)
	if err != nil {
		return nil, storeFail(err)
	}
	if full == nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if err := s.loadAttachments(callCtx, full); err != nil {
		return nil, err
	}

	metrics.MessagesSent.Inc()
	s.gateway.DispatchExcept(rc.Topic(), userID, gateway.EventMessageCreate, gateway.Inserted(full))
	s.notifyDM(ctx, rc, full)

	return full, nil
}

// Get returns a single message after checking conversation access.
func (s *MessageService) Get(ctx context.Context, ref models.ConversationRef, messageID, userID int64) (*models.MessageWithMeta, error) {
	if _, err := s.resolver.resolve(ctx, ref, userID); err != nil {
		return nil, err
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	msg, err := s.messages.GetByID(callCtx, messageID)
	if err != nil {
		return nil, storeFail(err)
	}
	if msg == nil || !msg.Ref().Equal(ref) {
		return nil, NotFound("NOT_FOUND", "message not found")
	}
	if err := s.loadAttachments(callCtx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// List returns messages oldest-first, up to limit, strictly before the
// cursor message ID when one is given.
func (s *MessageService) List(ctx context.Context, ref models.ConversationRef, userID int64, before *int64, limit int) ([]models.MessageWithMeta, error) {
	if _, err := s.resolver.resolve(ctx, ref, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	messages, err := s.messages.ListByConversation(callCtx, ref, before, limit)
	if err != nil {
		return nil, storeFail(err)
	}

	// The store returns newest-first for cheap cursor pagination; clients
	// render oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	if messages == nil {
		messages = []models.MessageWithMeta{}
	}
	if err := s.loadAttachmentsPage(callCtx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Edit replaces a message's content. Only the author can edit; the edit is
// audited via the edited flag and timestamp.
func (s *MessageService) Edit(ctx context.Context, ref models.ConversationRef, messageID, userID int64, content string) (*models.MessageWithMeta, error) {
	rc, err := s.resolver.resolve(ctx, ref, userID)
	if err != nil {
		return nil, err
	}

	if len(content) == 0 || len(content) > maxContentLength {
		return nil, BadRequest("INVALID_CONTENT", "message content must be 1-4000 characters")
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	msg, err := s.messages.GetByID(callCtx, messageID)
	if err != nil {
		return nil, storeFail(err)
	}
	if msg == nil || !msg.Ref().Equal(ref) {
		return nil, NotFound("NOT_FOUND", "message not found")
	}
	if msg.AuthorID != userID {
		return nil, Forbidden("FORBIDDEN", "you can only edit your own messages")
	}

	before := *msg

	now := time.Now()
	updated := &models.Message{
		ID:       messageID,
		Content:  content,
		Edited:   true,
		EditedAt: &now,
	}
	if err := s.messages.Update(callCtx, updated); err != nil {
		return nil, storeFail(err)
	}

	full, err := s.messages.GetByID(callCtx, messageID)
	if err != nil {
		return nil, storeFail(err)
	}
	if full == nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if err := s.loadAttachments(callCtx, full); err != nil {
		return nil, err
	}

	s.gateway.DispatchExcept(rc.Topic(), userID, gateway.EventMessageUpdate, gateway.Updated(before, full))

	return full, nil
}

// Delete removes a message. The author can always delete their own; in a
// channel the community owner can also delete.
func (s *MessageService) Delete(ctx context.Context, ref models.ConversationRef, messageID, userID int64) error {
	rc, err := s.resolver.resolve(ctx, ref, userID)
	if err != nil {
		return err
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	msg, err := s.messages.GetByID(callCtx, messageID)
	if err != nil {
		return storeFail(err)
	}
	if msg == nil || !msg.Ref().Equal(ref) {
		return NotFound("NOT_FOUND", "message not found")
	}

	if msg.AuthorID != userID {
		if rc.DM != nil {
			return Forbidden("FORBIDDEN", "you can only delete your own messages in DMs")
		}
		owner, err := s.isCommunityOwner(callCtx, rc.Channel.CommunityID, userID)
		if err != nil {
			return err
		}
		if !owner {
			return Forbidden("FORBIDDEN", "you can only delete your own messages")
		}
	}

	if err := s.messages.Delete(callCtx, messageID); err != nil {
		return storeFail(err)
	}

	s.gateway.Dispatch(rc.Topic(), gateway.EventMessageDelete, gateway.Deleted(msg))
	return nil
}

// loadAttachments populates the attachments on a single message.
func (s *MessageService) loadAttachments(ctx context.Context, msg *models.MessageWithMeta) error {
	atts, err := s.attachments.GetByMessageID(ctx, msg.ID)
	if err != nil {
		return storeFail(err)
	}
	msg.Attachments = atts
	return nil
}

// loadAttachmentsPage populates attachments across a page of messages with
// one batched lookup instead of a query per message.
func (s *MessageService) loadAttachmentsPage(ctx context.Context, messages []models.MessageWithMeta) error {
	if len(messages) == 0 {
		return nil
	}
	ids := make([]int64, len(messages))
	for i := range messages {
		ids[i] = messages[i].ID
	}
	byMessage, err := s.attachments.GetByMessageIDs(ctx, ids)
	if err != nil {
		return storeFail(err)
	}
	for i := range messages {
		messages[i].Attachments = byMessage[messages[i].ID]
	}
	return nil
}

func (s *MessageService) isCommunityOwner(ctx context.Context, communityID, userID int64) (bool, error) {
	community, err := s.resolver.communities.GetByID(ctx, communityID)
	if err != nil {
		return false, storeFail(err)
	}
	return community != nil && community.OwnerID == userID, nil
}

// touchActivity bumps the conversation's last-activity timestamp; failures
// are logged, not surfaced, since the message itself is already committed.
func (s *MessageService) touchActivity(ctx context.Context, rc *resolvedConversation, at time.Time) {
	var err error
	if rc.DM != nil {
		err = s.dms.TouchActivity(ctx, rc.DM.ID, at)
	} else {
		err = s.channels.TouchActivity(ctx, rc.Channel.ID, at)
	}
	if err != nil {
		slog.Error("failed to touch conversation activity", "error", err)
	}
}

// notifyDM records a notification for the other DM participants.
func (s *MessageService) notifyDM(ctx context.Context, rc *resolvedConversation, msg *models.MessageWithMeta) {
	if rc.DM == nil || s.notifier == nil {
		return
	}
	for _, id := range rc.ParticipantIDs() {
		if id == msg.AuthorID {
			continue
		}
		err := s.notifier.CreateNotification(ctx, id, "dm_message", msg.AuthorDisplayName, msg.Content, map[string]any{
			"dm_conversation_id": rc.DM.ID,
			"message_id":         msg.ID,
		})
		if err != nil {
			slog.Error("failed to create DM notification", "userID", id, "error", err)
		}
	}
}
