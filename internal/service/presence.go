package service

import (
	"context"
	"time"

	"github.com/ewittman/quad/internal/database"
	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/redis"
)

// PresenceService owns typing indicators and presence lookups. Typing state
// lives in Redis under a TTL, so an indicator whose owner vanished expires
// on its own; an explicit stop or a superseding start simply replaces it.
type PresenceService struct {
	redis    *redis.Client
	resolver *conversationResolver
	gateway  gateway.Dispatcher
}

// NewPresenceService creates a PresenceService.
func NewPresenceService(
	redisClient *redis.Client,
	channels database.ChannelRepository,
	communities database.CommunityRepository,
	dms database.DMConversationRepository,
	gw gateway.Dispatcher,
) *PresenceService {
	return &PresenceService{
		redis:    redisClient,
		resolver: newConversationResolver(channels, communities, dms),
		gateway:  gw,
	}
}

// StartTyping marks the actor as typing in the conversation and tells the
// other subscribers. A repeated start refreshes the indicator.
func (s *PresenceService) StartTyping(ctx context.Context, ref models.ConversationRef, userID int64) error {
	rc, err := s.resolver.resolve(ctx, ref, userID)
	if err != nil {
		return err
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	if err := s.redis.SetTyping(callCtx, ref, userID); err != nil {
		return storeFail(err)
	}

	s.gateway.DispatchExcept(rc.Topic(), userID, gateway.EventTypingStart, gateway.Inserted(gateway.TypingData{
		Conversation: ref,
		UserID:       userID,
		Timestamp:    time.Now().Unix(),
	}))
	return nil
}

// StopTyping clears the actor's typing indicator. Stopping when not typing
// is a no-op.
func (s *PresenceService) StopTyping(ctx context.Context, ref models.ConversationRef, userID int64) error {
	rc, err := s.resolver.resolve(ctx, ref, userID)
	if err != nil {
		return err
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	if err := s.redis.ClearTyping(callCtx, ref, userID); err != nil {
		return storeFail(err)
	}

	s.gateway.DispatchExcept(rc.Topic(), userID, gateway.EventTypingStop, gateway.Deleted(gateway.TypingData{
		Conversation: ref,
		UserID:       userID,
		Timestamp:    time.Now().Unix(),
	}))
	return nil
}

// TypingUsers returns who is currently typing in the conversation, minus
// the asking actor. Only live (unexpired) indicators are returned.
func (s *PresenceService) TypingUsers(ctx context.Context, ref models.ConversationRef, userID int64) ([]int64, error) {
	if _, err := s.resolver.resolve(ctx, ref, userID); err != nil {
		return nil, err
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	userIDs, err := s.redis.GetTyping(callCtx, ref)
	if err != nil {
		return nil, storeFail(err)
	}

	filtered := make([]int64, 0, len(userIDs))
	for _, id := range userIDs {
		if id != userID {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}

// Status returns the presence status for a user, defaulting to offline.
func (s *PresenceService) Status(ctx context.Context, userID int64) string {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	status, err := s.redis.GetPresence(callCtx, userID)
	if err != nil || status == "" {
		return "offline"
	}
	return status
}
