package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ewittman/quad/internal/database"
	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/snowflake"
)

// VoiceService owns voice session lifecycle and rosters. A session runs
// created → active → ended; ended is terminal, and joining an ended session
// is rejected — a later caller starts a fresh session on the channel.
type VoiceService struct {
	sessions    database.VoiceSessionRepository
	channels    database.ChannelRepository
	communities database.CommunityRepository
	users       database.UserRepository
	snowflake   *snowflake.Generator
	gateway     gateway.Dispatcher
	apiKey      string
	apiSecret   string
}

// NewVoiceService creates a VoiceService.
func NewVoiceService(
	sessions database.VoiceSessionRepository,
	channels database.ChannelRepository,
	communities database.CommunityRepository,
	users database.UserRepository,
	sf *snowflake.Generator,
	gw gateway.Dispatcher,
	apiKey, apiSecret string,
) *VoiceService {
	return &VoiceService{
		sessions:    sessions,
		channels:    channels,
		communities: communities,
		users:       users,
		snowflake:   sf,
		gateway:     gw,
		apiKey:      apiKey,
		apiSecret:   apiSecret,
	}
}

// SessionResponse is returned from Start and Join.
type SessionResponse struct {
	Session      models.VoiceSession       `json:"session"`
	Token        string                    `json:"token"`
	Participants []models.VoiceParticipant `json:"participants"`
}

// Start opens a voice session on a voice channel with the actor as its
// sole participant. A channel can carry at most one active session.
func (s *VoiceService) Start(ctx context.Context, channelID, userID int64) (*SessionResponse, error) {
	channel, err := s.resolveVoiceChannel(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	active, err := s.sessions.GetActiveByChannel(callCtx, channelID)
	if err != nil {
		return nil, storeFail(err)
	}
	if active != nil {
		return nil, Conflict("SESSION_ACTIVE", "channel already has an active voice session")
	}

	session := &models.VoiceSession{
		ID:        s.snowflake.Next().Int64(),
		ChannelID: channelID,
		StartedBy: userID,
		StartedAt: time.Now(),
	}
	if err := s.sessions.Create(callCtx, session); err != nil {
		return nil, storeFail(err)
	}
	if err := s.sessions.AddParticipant(callCtx, session.ID, userID); err != nil {
		return nil, storeFail(err)
	}

	resp, err := s.sessionResponse(callCtx, session, userID)
	if err != nil {
		return nil, err
	}

	s.gateway.Dispatch(gateway.ChannelTopic(channelID), gateway.EventVoiceSessionStart, gateway.Inserted(session))
	s.dispatchRoster(channel.ID, session.ID, resp.Participants)

	return resp, nil
}

// Join adds the actor to an existing session's roster. Joining twice is
// idempotent: the roster still holds the actor once, and no duplicate
// roster event goes out.
func (s *VoiceService) Join(ctx context.Context, sessionID, userID int64) (*SessionResponse, error) {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	session, err := s.sessions.GetByID(callCtx, sessionID)
	if err != nil {
		return nil, storeFail(err)
	}
	if session == nil {
		return nil, NotFound("NOT_FOUND", "voice session not found")
	}
	if session.Ended() {
		return nil, Gone("SESSION_ENDED", "voice session has ended")
	}

	channel, err := s.resolveVoiceChannel(ctx, session.ChannelID, userID)
	if err != nil {
		return nil, err
	}

	before, err := s.sessions.Participants(callCtx, sessionID)
	if err != nil {
		return nil, storeFail(err)
	}
	alreadyIn := false
	for _, p := range before {
		if p.UserID == userID {
			alreadyIn = true
			break
		}
	}

	if err := s.sessions.AddParticipant(callCtx, sessionID, userID); err != nil {
		return nil, storeFail(err)
	}

	resp, err := s.sessionResponse(callCtx, session, userID)
	if err != nil {
		return nil, err
	}

	if !alreadyIn {
		s.dispatchRoster(channel.ID, sessionID, resp.Participants)
	}
	return resp, nil
}

// Leave removes the actor from the roster. Leaving a session the actor is
// not in is a no-op. When the last participant leaves, the session ends.
func (s *VoiceService) Leave(ctx context.Context, sessionID, userID int64) error {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	session, err := s.sessions.GetByID(callCtx, sessionID)
	if err != nil {
		return storeFail(err)
	}
	if session == nil {
		return NotFound("NOT_FOUND", "voice session not found")
	}
	if session.Ended() {
		return nil
	}

	remaining, err := s.sessions.RemoveParticipant(callCtx, sessionID, userID)
	if err != nil {
		return storeFail(err)
	}

	if remaining == 0 {
		s.gateway.Dispatch(gateway.ChannelTopic(session.ChannelID), gateway.EventVoiceSessionEnd, gateway.Deleted(session))
		return nil
	}

	participants, err := s.sessions.Participants(callCtx, sessionID)
	if err != nil {
		return storeFail(err)
	}
	s.dispatchRoster(session.ChannelID, sessionID, participants)
	return nil
}

// Roster returns the session's current participants.
func (s *VoiceService) Roster(ctx context.Context, sessionID, userID int64) ([]models.VoiceParticipant, error) {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	session, err := s.sessions.GetByID(callCtx, sessionID)
	if err != nil {
		return nil, storeFail(err)
	}
	if session == nil {
		return nil, NotFound("NOT_FOUND", "voice session not found")
	}

	if _, err := s.resolveVoiceChannel(ctx, session.ChannelID, userID); err != nil {
		return nil, err
	}

	participants, err := s.sessions.Participants(callCtx, sessionID)
	if err != nil {
		return nil, storeFail(err)
	}
	if participants == nil {
		participants = []models.VoiceParticipant{}
	}
	return participants, nil
}

// Active returns the channel's active session, or NotFound if there is none.
func (s *VoiceService) Active(ctx context.Context, channelID, userID int64) (*models.VoiceSession, error) {
	if _, err := s.resolveVoiceChannel(ctx, channelID, userID); err != nil {
		return nil, err
	}

	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	session, err := s.sessions.GetActiveByChannel(callCtx, channelID)
	if err != nil {
		return nil, storeFail(err)
	}
	if session == nil {
		return nil, NotFound("NOT_FOUND", "no active voice session")
	}
	return session, nil
}

func (s *VoiceService) dispatchRoster(channelID, sessionID int64, participants []models.VoiceParticipant) {
	payload := struct {
		SessionID    int64                     `json:"session_id,string"`
		Participants []models.VoiceParticipant `json:"participants"`
	}{SessionID: sessionID, Participants: participants}
	s.gateway.Dispatch(gateway.ChannelTopic(channelID), gateway.EventVoiceRosterUpdate, gateway.Updated(nil, payload))
}

// resolveVoiceChannel checks the channel exists, is a voice channel, and
// the actor is a member of its community.
func (s *VoiceService) resolveVoiceChannel(ctx context.Context, channelID, userID int64) (*models.Channel, error) {
	callCtx, cancel := storeCtx(ctx)
	defer cancel()

	channel, err := s.channels.GetByID(callCtx, channelID)
	if err != nil {
		return nil, storeFail(err)
	}
	if channel == nil {
		return nil, NotFound("NOT_FOUND", "channel not found")
	}
	if channel.Kind != models.ChannelVoice {
		return nil, BadRequest("NOT_VOICE_CHANNEL", "channel is not a voice channel")
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

func (s *VoiceService) sessionResponse(ctx context.Context, session *models.VoiceSession, userID int64) (*SessionResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeFail(err)
	}
	if user == nil {
		return nil, NotFound("NOT_FOUND", "user not found")
	}

	token, err := s.generateRoomToken(session.ID, userID, user.Username)
	if err != nil {
		return nil, Internal("INTERNAL", "failed to generate voice token")
	}

	participants, err := s.sessions.Participants(ctx, session.ID)
	if err != nil {
		return nil, storeFail(err)
	}
	if participants == nil {
		participants = []models.VoiceParticipant{}
	}

	return &SessionResponse{
		Session:      *session,
		Token:        token,
		Participants: participants,
	}, nil
}

// generateRoomToken creates a LiveKit-compatible access token. LiveKit
// tokens use HS256 with the API secret and carry a "video" grant.
func (s *VoiceService) generateRoomToken(sessionID, userID int64, username string) (string, error) {
	now := time.Now()
	roomName := fmt.Sprintf("voice-%d", sessionID)

	claims := jwt.MapClaims{
		"iss":  s.apiKey,
		"sub":  fmt.Sprintf("%d", userID),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  now.Add(24 * time.Hour).Unix(),
		"name": username,
		"video": map[string]interface{}{
			"roomJoin": true,
			"room":     roomName,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.apiSecret))
}
