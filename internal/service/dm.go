package service

import (
	"context"

	"github.com/ewittman/quad/internal/database"
	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/snowflake"
)

const maxGroupParticipants = 10

// DMService owns direct-message conversations, 1:1 and group.
type DMService struct {
	dms       database.DMConversationRepository
	users     database.UserRepository
	snowflake *snowflake.Generator
	gateway   gateway.Dispatcher
}

// NewDMService creates a DMService.
func NewDMService(
	dms database.DMConversationRepository,
	users database.UserRepository,
	sf *snowflake.Generator,
	gw gateway.Dispatcher,
) *DMService {
	return &DMService{
		dms:       dms,
		users:     users,
		snowflake: sf,
		gateway:   gw,
	}
}

// OpenDirect creates or retrieves the 1:1 conversation between the actor
// and the recipient. Opening the same pair twice returns the same
// conversation.
func (s *DMService) OpenDirect(ctx context.Context, userID, recipientID int64) (*models.DMConversation, error) {
	if recipientID == 0 {
		return nil, BadRequest("INVALID_RECIPIENT", "invalid recipient_id")
	}
	if recipientID == userID {
		return nil, BadRequest("INVALID_RECIPIENT", "cannot open a DM with yourself")
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	recipient, err := s.users.GetByID(callCtx, recipientID)
	if err != nil {
		return nil, storeFail(err)
	}
	if recipient == nil {
		return nil, NotFound("NOT_FOUND", "recipient not found")
	}

	newID := s.snowflake.Next().Int64()
	dm, err := s.dms.GetOrCreateDirect(callCtx, userID, recipientID, newID)
	if err != nil {
		return nil, storeFail(err)
	}

	if dm.ID == newID {
		change := gateway.Inserted(dm)
		s.gateway.DispatchToUser(userID, gateway.EventDMCreate, change)
		s.gateway.DispatchToUser(recipientID, gateway.EventDMCreate, change)
		s.gateway.SubscribeUser(userID, gateway.DMTopic(dm.ID))
		s.gateway.SubscribeUser(recipientID, gateway.DMTopic(dm.ID))
	}

	return dm, nil
}

// CreateGroup creates a named group conversation with the actor and the
// given participants.
func (s *DMService) CreateGroup(ctx context.Context, userID int64, name string, participantIDs []int64) (*models.DMConversation, error) {
	if name == "" || len(name) > 100 {
		return nil, BadRequest("INVALID_NAME", "group name must be 1-100 characters")
	}
	if len(participantIDs) == 0 {
		return nil, BadRequest("INVALID_PARTICIPANTS", "group needs at least one other participant")
	}
	if len(participantIDs) >= maxGroupParticipants {
		return nil, BadRequest("INVALID_PARTICIPANTS", "too many participants")
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	members := []models.User{}
	seen := map[int64]bool{userID: true}
	for _, id := range participantIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		user, err := s.users.GetByID(callCtx, id)
		if err != nil {
			return nil, storeFail(err)
		}
		if user == nil {
			return nil, NotFound("NOT_FOUND", "participant not found")
		}
		members = append(members, *user)
	}

	actor, err := s.users.GetByID(callCtx, userID)
	if err != nil {
		return nil, storeFail(err)
	}
	if actor == nil {
		return nil, NotFound("NOT_FOUND", "user not found")
	}
	members = append(members, *actor)

	dm := &models.DMConversation{
		ID:           s.snowflake.Next().Int64(),
		Group:        true,
		Name:         &name,
		Participants: members,
	}
	if err := s.dms.Create(callCtx, dm); err != nil {
		return nil, storeFail(err)
	}

	change := gateway.Inserted(dm)
	for _, member := range members {
		s.gateway.DispatchToUser(member.ID, gateway.EventDMCreate, change)
		s.gateway.SubscribeUser(member.ID, gateway.DMTopic(dm.ID))
	}

	return dm, nil
}

// Get returns a conversation the actor participates in.
func (s *DMService) Get(ctx context.Context, dmID, userID int64) (*models.DMConversation, error) {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	dm, err := s.dms.GetByID(callCtx, dmID)
	if err != nil {
		return nil, storeFail(err)
	}
	if dm == nil {
		return nil, NotFound("NOT_FOUND", "conversation not found")
	}

	ok, err := s.dms.IsParticipant(callCtx, dmID, userID)
	if err != nil {
		return nil, storeFail(err)
	}
	if !ok {
		return nil, Forbidden("FORBIDDEN", "you are not a participant of this conversation")
	}
	return dm, nil
}

// List returns the actor's conversations, most recently active first.
func (s *DMService) List(ctx context.Context, userID int64) ([]models.DMConversation, error) {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	dms, err := s.dms.GetByParticipant(callCtx, userID)
	if err != nil {
		return nil, storeFail(err)
	}
	if dms == nil {
		dms = []models.DMConversation{}
	}
	return dms, nil
}
