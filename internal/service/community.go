package service

import (
	"context"
	"time"

	"github.com/ewittman/quad/internal/database"
	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/snowflake"
)

// CommunityService owns communities and their membership.
type CommunityService struct {
	communities database.CommunityRepository
	channels    database.ChannelRepository
	snowflake   *snowflake.Generator
	gateway     gateway.Dispatcher
}

// NewCommunityService creates a CommunityService.
func NewCommunityService(
	communities database.CommunityRepository,
	channels database.ChannelRepository,
	sf *snowflake.Generator,
	gw gateway.Dispatcher,
) *CommunityService {
	return &CommunityService{
		communities: communities,
		channels:    channels,
		snowflake:   sf,
		gateway:     gw,
	}
}

// Create creates a community with the actor as owner and first member.
func (s *CommunityService) Create(ctx context.Context, userID int64, name string) (*models.Community, error) {
	if name == "" || len(name) > 100 {
		return nil, BadRequest("INVALID_NAME", "community name must be 1-100 characters")
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	community := &models.Community{
		ID:        s.snowflake.Next().Int64(),
		Name:      name,
		OwnerID:   userID,
		CreatedAt: time.Now(),
	}
	if err := s.communities.Create(callCtx, community); err != nil {
		return nil, storeFail(err)
	}
	return community, nil
}

// Get returns a community the actor is a member of.
func (s *CommunityService) Get(ctx context.Context, communityID, userID int64) (*models.Community, error) {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	community, err := s.communities.GetByID(callCtx, communityID)
	if err != nil {
		return nil, storeFail(err)
	}
	if community == nil {
		return nil, NotFound("NOT_FOUND", "community not found")
	}

	ok, err := s.communities.IsMember(callCtx, communityID, userID)
	if err != nil {
		return nil, storeFail(err)
	}
	if !ok {
		return nil, Forbidden("FORBIDDEN", "you are not a member of this community")
	}
	return community, nil
}

// List returns the communities the actor belongs to.
func (s *CommunityService) List(ctx context.Context, userID int64) ([]models.Community, error) {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	communities, err := s.communities.GetByMember(callCtx, userID)
	if err != nil {
		return nil, storeFail(err)
	}
	if communities == nil {
		communities = []models.Community{}
	}
	return communities, nil
}

// Join enrolls the actor and subscribes them to the community's channels.
func (s *CommunityService) Join(ctx context.Context, communityID, userID int64) error {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	community, err := s.communities.GetByID(callCtx, communityID)
	if err != nil {
		return storeFail(err)
	}
	if community == nil {
		return NotFound("NOT_FOUND", "community not found")
	}

	if err := s.communities.AddMember(callCtx, communityID, userID); err != nil {
		return storeFail(err)
	}

	channels, err := s.channels.GetByCommunityID(callCtx, communityID)
	if err != nil {
		return storeFail(err)
	}
	for _, ch := range channels {
		s.gateway.SubscribeUser(userID, gateway.ChannelTopic(ch.ID))
	}
	return nil
}

// Leave removes the actor from the community. The owner cannot leave.
func (s *CommunityService) Leave(ctx context.Context, communityID, userID int64) error {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	community, err := s.communities.GetByID(callCtx, communityID)
	if err != nil {
		return storeFail(err)
	}
	if community == nil {
		return NotFound("NOT_FOUND", "community not found")
	}
	if community.OwnerID == userID {
		return BadRequest("OWNER_CANNOT_LEAVE", "the owner cannot leave their community")
	}

	if err := s.communities.RemoveMember(callCtx, communityID, userID); err != nil {
		return storeFail(err)
	}

	channels, err := s.channels.GetByCommunityID(callCtx, communityID)
	if err != nil {
		return storeFail(err)
	}
	for _, ch := range channels {
		s.gateway.UnsubscribeUser(userID, gateway.ChannelTopic(ch.ID))
	}
	return nil
}
