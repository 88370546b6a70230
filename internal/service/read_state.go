package service

import (
	"context"
	"time"

	"github.com/ewittman/quad/internal/database"
	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/models"
)

// ReadStateService owns the per-user-per-conversation read cursor and the
// unread counts derived from it. A conversation with no cursor row has
// never been viewed: every message in it is unread.
type ReadStateService struct {
	cursors  database.ReadCursorRepository
	messages database.MessageRepository
	resolver *conversationResolver
	gateway  gateway.Dispatcher
}

// NewReadStateService creates a ReadStateService.
func NewReadStateService(
	cursors database.ReadCursorRepository,
	messages database.MessageRepository,
	channels database.ChannelRepository,
	communities database.CommunityRepository,
	dms database.DMConversationRepository,
	gw gateway.Dispatcher,
) *ReadStateService {
	return &ReadStateService{
		cursors:  cursors,
		messages: messages,
		resolver: newConversationResolver(channels, communities, dms),
		gateway:  gw,
	}
}

// MarkRead advances the actor's cursor for the conversation. With a message
// ID the cursor lands on that message's timestamp; without one it lands on
// now. The cursor never moves backward: acking an old message after a newer
// one is a no-op.
func (s *ReadStateService) MarkRead(ctx context.Context, ref models.ConversationRef, userID int64, messageID *int64) (*models.ReadCursor, error) {
	if _, err := s.resolver.resolve(ctx, ref, userID); err != nil {
		return nil, err
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	at := time.Now()
	if messageID != nil {
		msg, err := s.messages.GetByID(callCtx, *messageID)
		if err != nil {
			return nil, storeFail(err)
		}
		if msg == nil || !msg.Ref().Equal(ref) {
			return nil, NotFound("NOT_FOUND", "message not found")
		}
		at = msg.CreatedAt
	}

	if err := s.cursors.Upsert(callCtx, ref, userID, at); err != nil {
		return nil, storeFail(err)
	}

	cursor, err := s.cursors.Get(callCtx, ref, userID)
	if err != nil {
		return nil, storeFail(err)
	}
	if cursor == nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	// Other devices of the same user sync their badge off this.
	s.gateway.DispatchToUser(userID, gateway.EventReadCursorUpdate, gateway.Updated(nil, cursor))

	return cursor, nil
}

// UnreadCount returns how many messages in the conversation the actor has
// not read. The actor's own messages never count as unread.
func (s *ReadStateService) UnreadCount(ctx context.Context, ref models.ConversationRef, userID int64) (int, error) {
	if _, err := s.resolver.resolve(ctx, ref, userID); err != nil {
		return 0, err
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	cursor, err := s.cursors.Get(callCtx, ref, userID)
	if err != nil {
		return 0, storeFail(err)
	}

	// No cursor: the conversation has never been viewed, count everything.
	var since time.Time
	if cursor != nil {
		since = cursor.LastReadAt
	}

	count, err := s.messages.CountSince(callCtx, ref, since, userID)
	if err != nil {
		return 0, storeFail(err)
	}
	return count, nil
}

// TotalUnread returns the actor's unread total across all conversations.
func (s *ReadStateService) TotalUnread(ctx context.Context, userID int64) (int, error) {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	count, err := s.cursors.TotalUnread(callCtx, userID)
	if err != nil {
		return 0, storeFail(err)
	}
	return count, nil
}

// Cursors returns all of the actor's read cursors.
func (s *ReadStateService) Cursors(ctx context.Context, userID int64) ([]models.ReadCursor, error) {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	cursors, err := s.cursors.GetByUser(callCtx, userID)
	if err != nil {
		return nil, storeFail(err)
	}
	if cursors == nil {
		cursors = []models.ReadCursor{}
	}
	return cursors, nil
}
