package service

import (
	"context"

	"github.com/ewittman/quad/internal/database"
	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/models"
)

// resolvedConversation is the outcome of an access check: exactly one of
// Channel or DM is set, mirroring the ref it was resolved from.
type resolvedConversation struct {
	Ref     models.ConversationRef
	Channel *models.Channel
	DM      *models.DMConversation
}

// Topic returns the fan-out topic for the conversation.
func (rc *resolvedConversation) Topic() gateway.Topic {
	return gateway.ConversationTopic(rc.Ref)
}

// ParticipantIDs returns the DM participant user IDs, or nil for a channel.
func (rc *resolvedConversation) ParticipantIDs() []int64 {
	if rc.DM == nil {
		return nil
	}
	ids := make([]int64, len(rc.DM.Participants))
	for i, p := range rc.DM.Participants {
		ids[i] = p.ID
	}
	return ids
}

// conversationResolver is the one access-check path shared by every service
// that takes a ConversationRef. Channel refs require community membership;
// DM refs require being a participant.
type conversationResolver struct {
	channels    database.ChannelRepository
	communities database.CommunityRepository
	dms         database.DMConversationRepository
}

func newConversationResolver(
	channels database.ChannelRepository,
	communities database.CommunityRepository,
	dms database.DMConversationRepository,
) *conversationResolver {
	return &conversationResolver{
		channels:    channels,
		communities: communities,
		dms:         dms,
	}
}

// resolve validates the ref and verifies userID may act in the conversation.
func (r *conversationResolver) resolve(ctx context.Context, ref models.ConversationRef, userID int64) (*resolvedConversation, error) {
	if err := ref.Validate(); err != nil {
		return nil, BadRequest("INVALID_CONVERSATION", err.Error())
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	if ref.IsDM() {
		dm, err := r.dms.GetByID(callCtx, ref.ID())
		if err != nil {
			return nil, storeFail(err)
		}
		if dm == nil {
			return nil, NotFound("NOT_FOUND", "conversation not found")
		}
		ok, err := r.dms.IsParticipant(callCtx, dm.ID, userID)
		if err != nil {
			return nil, storeFail(err)
		}
		if !ok {
			return nil, Forbidden("FORBIDDEN", "you are not a participant of this conversation")
		}
		return &resolvedConversation{Ref: ref, DM: dm}, nil
	}

	channel, err := r.channels.GetByID(callCtx, ref.ID())
	if err != nil {
		return nil, storeFail(err)
	}
	if channel == nil {
		return nil, NotFound("NOT_FOUND", "conversation not found")
	}
	ok, err := r.communities.IsMember(callCtx, channel.CommunityID, userID)
	if err != nil {
		return nil, storeFail(err)
	}
	if !ok {
		return nil, Forbidden("FORBIDDEN", "you are not a member of this community")
	}
	return &resolvedConversation{Ref: ref, Channel: channel}, nil
}
