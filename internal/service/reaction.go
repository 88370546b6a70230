package service

import (
	"context"

	"github.com/ewittman/quad/internal/database"
	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/models"
)

// ReactionService owns the per-actor reaction toggle and the derived
// per-emoji aggregates.
type ReactionService struct {
	reactions database.ReactionRepository
	messages  database.MessageRepository
	resolver  *conversationResolver
	gateway   gateway.Dispatcher
}

// NewReactionService creates a ReactionService.
func NewReactionService(
	reactions database.ReactionRepository,
	messages database.MessageRepository,
	channels database.ChannelRepository,
	communities database.CommunityRepository,
	dms database.DMConversationRepository,
	gw gateway.Dispatcher,
) *ReactionService {
	return &ReactionService{
		reactions: reactions,
		messages:  messages,
		resolver:  newConversationResolver(channels, communities, dms),
		gateway:   gw,
	}
}

// ToggleResult is returned from a toggle: whether the actor's tuple now
// exists, plus the recomputed aggregates for the message.
type ToggleResult struct {
	MessageID int64                  `json:"message_id,string"`
	Emoji     string                 `json:"emoji"`
	UserID    int64                  `json:"user_id,string"`
	Added     bool                   `json:"added"`
	Groups    []models.ReactionGroup `json:"groups"`
}

// Toggle flips the (message, user, emoji) tuple: removes it if present,
// adds it if absent. The flip is a single store-side operation, so two
// users toggling the same emoji concurrently never lose each other's
// reaction.
func (s *ReactionService) Toggle(ctx context.Context, messageID, userID int64, emoji string) (*ToggleResult, error) {
	if emoji == "" || len(emoji) > 64 {
		return nil, BadRequest("INVALID_EMOJI", "emoji must be 1-64 characters")
	}

	_, rc, err := s.resolveMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	added, err := s.reactions.Toggle(callCtx, messageID, userID, emoji)
	if err != nil {
		return nil, storeFail(err)
	}

	groups, err := s.reactions.GroupsByMessage(callCtx, messageID, userID)
	if err != nil {
		return nil, storeFail(err)
	}
	if groups == nil {
		groups = []models.ReactionGroup{}
	}

	result := &ToggleResult{
		MessageID: messageID,
		Emoji:     emoji,
		UserID:    userID,
		Added:     added,
		Groups:    groups,
	}

	change := gateway.Updated(nil, result)
	if !added {
		change = gateway.Deleted(result)
	}
	s.gateway.Dispatch(rc.Topic(), gateway.EventMessageReactionUpdate, change)

	return result, nil
}

// Groups returns the per-emoji aggregates for a message.
func (s *ReactionService) Groups(ctx context.Context, messageID, userID int64) ([]models.ReactionGroup, error) {
	if _, _, err := s.resolveMessage(ctx, messageID, userID); err != nil {
		return nil, err
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	groups, err := s.reactions.GroupsByMessage(callCtx, messageID, userID)
	if err != nil {
		return nil, storeFail(err)
	}
	if groups == nil {
		groups = []models.ReactionGroup{}
	}
	return groups, nil
}

// Reactors returns the user IDs who reacted with an emoji on a message.
func (s *ReactionService) Reactors(ctx context.Context, messageID, userID int64, emoji string, limit int) ([]int64, error) {
	if emoji == "" {
		return nil, BadRequest("INVALID_EMOJI", "emoji must not be empty")
	}
	if _, _, err := s.resolveMessage(ctx, messageID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	userIDs, err := s.reactions.UsersByEmoji(callCtx, messageID, emoji, limit)
	if err != nil {
		return nil, storeFail(err)
	}
	if userIDs == nil {
		userIDs = []int64{}
	}
	return userIDs, nil
}

// resolveMessage loads the message and checks the actor can access its
// conversation.
func (s *ReactionService) resolveMessage(ctx context.Context, messageID, userID int64) (*models.MessageWithMeta, *resolvedConversation, error) {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	msg, err := s.messages.GetByID(callCtx, messageID)
	if err != nil {
		return nil, nil, storeFail(err)
	}
	if msg == nil {
		return nil, nil, NotFound("NOT_FOUND", "message not found")
	}

	rc, err := s.resolver.resolve(ctx, msg.Ref(), userID)
	if err != nil {
		return nil, nil, err
	}
	return msg, rc, nil
}
