package service

import (
	"context"
	"time"

	"github.com/ewittman/quad/internal/database"
	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/snowflake"
)

// ChannelService owns channels within a community.
type ChannelService struct {
	channels    database.ChannelRepository
	communities database.CommunityRepository
	snowflake   *snowflake.Generator
	gateway     gateway.Dispatcher
}

// NewChannelService creates a ChannelService.
func NewChannelService(
	channels database.ChannelRepository,
	communities database.CommunityRepository,
	sf *snowflake.Generator,
	gw gateway.Dispatcher,
) *ChannelService {
	return &ChannelService{
		channels:    channels,
		communities: communities,
		snowflake:   sf,
		gateway:     gw,
	}
}

// CreateInput carries the fields of a channel create request.
type CreateInput struct {
	Name     string
	Kind     models.ChannelKind
	Private  bool
	Position int
	Topic    *string
}

// Create adds a channel to a community. Only the owner can create channels.
func (s *ChannelService) Create(ctx context.Context, communityID, userID int64, in CreateInput) (*models.Channel, error) {
	if in.Name == "" || len(in.Name) > 100 {
		return nil, BadRequest("INVALID_NAME", "channel name must be 1-100 characters")
	}
	if in.Kind == "" {
		in.Kind = models.ChannelText
	}
	if !in.Kind.Valid() {
		return nil, BadRequest("INVALID_KIND", "channel kind must be text, voice, or announcement")
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	community, err := s.communities.GetByID(callCtx, communityID)
	if err != nil {
		return nil, storeFail(err)
	}
	if community == nil {
		return nil, NotFound("NOT_FOUND", "community not found")
	}
	if community.OwnerID != userID {
		return nil, Forbidden("FORBIDDEN", "only the owner can create channels")
	}

	channel := &models.Channel{
		ID:             s.snowflake.Next().Int64(),
		CommunityID:    communityID,
		Name:           in.Name,
		Kind:           in.Kind,
		Private:        in.Private,
		Position:       in.Position,
		Topic:          in.Topic,
		LastActivityAt: time.Now(),
	}
	if err := s.channels.Create(callCtx, channel); err != nil {
		return nil, storeFail(err)
	}

	s.gateway.Dispatch(gateway.ChannelTopic(channel.ID), gateway.EventChannelCreate, gateway.Inserted(channel))
	return channel, nil
}

// Get returns a channel the actor can see.
func (s *ChannelService) Get(ctx context.Context, channelID, userID int64) (*models.Channel, error) {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	channel, err := s.channels.GetByID(callCtx, channelID)
	if err != nil {
		return nil, storeFail(err)
	}
	if channel == nil {
		return nil, NotFound("NOT_FOUND", "channel not found")
	}

	ok, err := s.communities.IsMember(callCtx, channel.CommunityID, userID)
	if err != nil {
		return nil, storeFail(err)
	}
	if !ok {
		return nil, Forbidden("FORBIDDEN", "you are not a member of this community")
	}
	return channel, nil
}

// List returns a community's channels in position order.
func (s *ChannelService) List(ctx context.Context, communityID, userID int64) ([]models.Channel, error) {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	ok, err := s.communities.IsMember(callCtx, communityID, userID)
	if err != nil {
		return nil, storeFail(err)
	}
	if !ok {
		return nil, Forbidden("FORBIDDEN", "you are not a member of this community")
	}

	channels, err := s.channels.GetByCommunityID(callCtx, communityID)
	if err != nil {
		return nil, storeFail(err)
	}
	if channels == nil {
		channels = []models.Channel{}
	}
	return channels, nil
}

// Delete removes a channel. Only the community owner can delete.
func (s *ChannelService) Delete(ctx context.Context, channelID, userID int64) error {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	channel, err := s.channels.GetByID(callCtx, channelID)
	if err != nil {
		return storeFail(err)
	}
	if channel == nil {
		return NotFound("NOT_FOUND", "channel not found")
	}

	community, err := s.communities.GetByID(callCtx, channel.CommunityID)
	if err != nil {
		return storeFail(err)
	}
	if community == nil || community.OwnerID != userID {
		return Forbidden("FORBIDDEN", "only the owner can delete channels")
	}

	if err := s.channels.Delete(callCtx, channelID); err != nil {
		return storeFail(err)
	}

	s.gateway.Dispatch(gateway.ChannelTopic(channelID), gateway.EventChannelDelete, gateway.Deleted(channel))
	return nil
}
