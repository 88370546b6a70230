package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/snowflake"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func testSnowflake() *snowflake.Generator {
	sf, _ := snowflake.NewGenerator(1)
	return sf
}

func ptr[T any](v T) *T { return &v }

// ---------------------------------------------------------------------------
// Mock gateway dispatcher
// ---------------------------------------------------------------------------

type dispatchedEvent struct {
	Topic        gateway.Topic
	UserID       int64
	ExceptUserID int64
	Event        string
	Change       gateway.Change
}

type mockDispatcher struct {
	mu     sync.Mutex
	events []dispatchedEvent
}

func (m *mockDispatcher) Dispatch(topic gateway.Topic, event string, change gateway.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{Topic: topic, Event: event, Change: change})
}

func (m *mockDispatcher) DispatchExcept(topic gateway.Topic, exceptUserID int64, event string, change gateway.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{Topic: topic, ExceptUserID: exceptUserID, Event: event, Change: change})
}

func (m *mockDispatcher) DispatchToUser(userID int64, event string, change gateway.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{UserID: userID, Event: event, Change: change})
}

func (m *mockDispatcher) SubscribeUser(userID int64, topic gateway.Topic)   {}
func (m *mockDispatcher) UnsubscribeUser(userID int64, topic gateway.Topic) {}

func (m *mockDispatcher) byEvent(event string) []dispatchedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []dispatchedEvent
	for _, e := range m.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Function-field mock repositories
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	CreateFn        func(ctx context.Context, user *models.User) error
	GetByIDFn       func(ctx context.Context, id int64) (*models.User, error)
	GetByUsernameFn func(ctx context.Context, username string) (*models.User, error)
	DeleteFn        func(ctx context.Context, id int64) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return &models.User{ID: id, Username: "user", DisplayName: "User"}, nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFn != nil {
		return m.GetByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

type mockCommunityRepo struct {
	CreateFn       func(ctx context.Context, community *models.Community) error
	GetByIDFn      func(ctx context.Context, id int64) (*models.Community, error)
	GetByMemberFn  func(ctx context.Context, userID int64) ([]models.Community, error)
	AddMemberFn    func(ctx context.Context, communityID, userID int64) error
	RemoveMemberFn func(ctx context.Context, communityID, userID int64) error
	IsMemberFn     func(ctx context.Context, communityID, userID int64) (bool, error)
	DeleteFn       func(ctx context.Context, id int64) error
}

func (m *mockCommunityRepo) Create(ctx context.Context, community *models.Community) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, community)
	}
	return nil
}

func (m *mockCommunityRepo) GetByID(ctx context.Context, id int64) (*models.Community, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return &models.Community{ID: id, Name: "community", OwnerID: 1}, nil
}

func (m *mockCommunityRepo) GetByMember(ctx context.Context, userID int64) ([]models.Community, error) {
	if m.GetByMemberFn != nil {
		return m.GetByMemberFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockCommunityRepo) AddMember(ctx context.Context, communityID, userID int64) error {
	if m.AddMemberFn != nil {
		return m.AddMemberFn(ctx, communityID, userID)
	}
	return nil
}

func (m *mockCommunityRepo) RemoveMember(ctx context.Context, communityID, userID int64) error {
	if m.RemoveMemberFn != nil {
		return m.RemoveMemberFn(ctx, communityID, userID)
	}
	return nil
}

func (m *mockCommunityRepo) IsMember(ctx context.Context, communityID, userID int64) (bool, error) {
	if m.IsMemberFn != nil {
		return m.IsMemberFn(ctx, communityID, userID)
	}
	return true, nil
}

func (m *mockCommunityRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

type mockChannelRepo struct {
	CreateFn           func(ctx context.Context, channel *models.Channel) error
	GetByIDFn          func(ctx context.Context, id int64) (*models.Channel, error)
	GetByCommunityIDFn func(ctx context.Context, communityID int64) ([]models.Channel, error)
	TouchActivityFn    func(ctx context.Context, id int64, at time.Time) error
	DeleteFn           func(ctx context.Context, id int64) error
}

func (m *mockChannelRepo) Create(ctx context.Context, channel *models.Channel) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, channel)
	}
	return nil
}

func (m *mockChannelRepo) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return &models.Channel{ID: id, CommunityID: 1, Name: "general", Kind: models.ChannelText}, nil
}

func (m *mockChannelRepo) GetByCommunityID(ctx context.Context, communityID int64) ([]models.Channel, error) {
	if m.GetByCommunityIDFn != nil {
		return m.GetByCommunityIDFn(ctx, communityID)
	}
	return nil, nil
}

func (m *mockChannelRepo) TouchActivity(ctx context.Context, id int64, at time.Time) error {
	if m.TouchActivityFn != nil {
		return m.TouchActivityFn(ctx, id, at)
	}
	return nil
}

func (m *mockChannelRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

type mockDMRepo struct {
	CreateFn            func(ctx context.Context, dm *models.DMConversation) error
	GetByIDFn           func(ctx context.Context, id int64) (*models.DMConversation, error)
	GetByParticipantFn  func(ctx context.Context, userID int64) ([]models.DMConversation, error)
	GetOrCreateDirectFn func(ctx context.Context, user1ID, user2ID, newID int64) (*models.DMConversation, error)
	IsParticipantFn     func(ctx context.Context, dmID, userID int64) (bool, error)
	TouchActivityFn     func(ctx context.Context, id int64, at time.Time) error
}

func (m *mockDMRepo) Create(ctx context.Context, dm *models.DMConversation) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, dm)
	}
	return nil
}

func (m *mockDMRepo) GetByID(ctx context.Context, id int64) (*models.DMConversation, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockDMRepo) GetByParticipant(ctx context.Context, userID int64) ([]models.DMConversation, error) {
	if m.GetByParticipantFn != nil {
		return m.GetByParticipantFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockDMRepo) GetOrCreateDirect(ctx context.Context, user1ID, user2ID, newID int64) (*models.DMConversation, error) {
	if m.GetOrCreateDirectFn != nil {
		return m.GetOrCreateDirectFn(ctx, user1ID, user2ID, newID)
	}
	return nil, nil
}

func (m *mockDMRepo) IsParticipant(ctx context.Context, dmID, userID int64) (bool, error) {
	if m.IsParticipantFn != nil {
		return m.IsParticipantFn(ctx, dmID, userID)
	}
	return true, nil
}

func (m *mockDMRepo) TouchActivity(ctx context.Context, id int64, at time.Time) error {
	if m.TouchActivityFn != nil {
		return m.TouchActivityFn(ctx, id, at)
	}
	return nil
}

type mockMessageRepo struct {
	CreateFn             func(ctx context.Context, msg *models.Message) error
	GetByIDFn            func(ctx context.Context, id int64) (*models.MessageWithMeta, error)
	ListByConversationFn func(ctx context.Context, ref models.ConversationRef, before *int64, limit int) ([]models.MessageWithMeta, error)
	CountSinceFn         func(ctx context.Context, ref models.ConversationRef, after time.Time, excludeAuthorID int64) (int, error)
	UpdateFn             func(ctx context.Context, msg *models.Message) error
	DeleteFn             func(ctx context.Context, id int64) error
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, msg)
	}
	return nil
}

func (m *mockMessageRepo) GetByID(ctx context.Context, id int64) (*models.MessageWithMeta, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockMessageRepo) ListByConversation(ctx context.Context, ref models.ConversationRef, before *int64, limit int) ([]models.MessageWithMeta, error) {
	if m.ListByConversationFn != nil {
		return m.ListByConversationFn(ctx, ref, before, limit)
	}
	return nil, nil
}

func (m *mockMessageRepo) CountSince(ctx context.Context, ref models.ConversationRef, after time.Time, excludeAuthorID int64) (int, error) {
	if m.CountSinceFn != nil {
		return m.CountSinceFn(ctx, ref, after, excludeAuthorID)
	}
	return 0, nil
}

func (m *mockMessageRepo) Update(ctx context.Context, msg *models.Message) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, msg)
	}
	return nil
}

func (m *mockMessageRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

type mockAttachmentRepo struct {
	CreateFn          func(ctx context.Context, attachment *models.Attachment) error
	GetByIDFn         func(ctx context.Context, id int64) (*models.Attachment, error)
	GetByMessageIDFn  func(ctx context.Context, messageID int64) ([]models.Attachment, error)
	GetByMessageIDsFn func(ctx context.Context, messageIDs []int64) (map[int64][]models.Attachment, error)
	ClaimFn           func(ctx context.Context, messageID, uploaderID int64, attachmentIDs []int64) error
	DeleteFn          func(ctx context.Context, id int64) error
}

func (m *mockAttachmentRepo) Create(ctx context.Context, attachment *models.Attachment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, attachment)
	}
	return nil
}

func (m *mockAttachmentRepo) GetByID(ctx context.Context, id int64) (*models.Attachment, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockAttachmentRepo) GetByMessageID(ctx context.Context, messageID int64) ([]models.Attachment, error) {
	if m.GetByMessageIDFn != nil {
		return m.GetByMessageIDFn(ctx, messageID)
	}
	return nil, nil
}

func (m *mockAttachmentRepo) GetByMessageIDs(ctx context.Context, messageIDs []int64) (map[int64][]models.Attachment, error) {
	if m.GetByMessageIDsFn != nil {
		return m.GetByMessageIDsFn(ctx, messageIDs)
	}
	return nil, nil
}

func (m *mockAttachmentRepo) Claim(ctx context.Context, messageID, uploaderID int64, attachmentIDs []int64) error {
	if m.ClaimFn != nil {
		return m.ClaimFn(ctx, messageID, uploaderID, attachmentIDs)
	}
	return nil
}

func (m *mockAttachmentRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

type mockVoiceRepo struct {
	CreateFn             func(ctx context.Context, session *models.VoiceSession) error
	GetByIDFn            func(ctx context.Context, id int64) (*models.VoiceSession, error)
	GetActiveByChannelFn func(ctx context.Context, channelID int64) (*models.VoiceSession, error)
	AddParticipantFn     func(ctx context.Context, sessionID, userID int64) error
	RemoveParticipantFn  func(ctx context.Context, sessionID, userID int64) (int, error)
	ParticipantsFn       func(ctx context.Context, sessionID int64) ([]models.VoiceParticipant, error)
}

func (m *mockVoiceRepo) Create(ctx context.Context, session *models.VoiceSession) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, session)
	}
	return nil
}

func (m *mockVoiceRepo) GetByID(ctx context.Context, id int64) (*models.VoiceSession, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockVoiceRepo) GetActiveByChannel(ctx context.Context, channelID int64) (*models.VoiceSession, error) {
	if m.GetActiveByChannelFn != nil {
		return m.GetActiveByChannelFn(ctx, channelID)
	}
	return nil, nil
}

func (m *mockVoiceRepo) AddParticipant(ctx context.Context, sessionID, userID int64) error {
	if m.AddParticipantFn != nil {
		return m.AddParticipantFn(ctx, sessionID, userID)
	}
	return nil
}

func (m *mockVoiceRepo) RemoveParticipant(ctx context.Context, sessionID, userID int64) (int, error) {
	if m.RemoveParticipantFn != nil {
		return m.RemoveParticipantFn(ctx, sessionID, userID)
	}
	return 0, nil
}

func (m *mockVoiceRepo) Participants(ctx context.Context, sessionID int64) ([]models.VoiceParticipant, error) {
	if m.ParticipantsFn != nil {
		return m.ParticipantsFn(ctx, sessionID)
	}
	return nil, nil
}

type mockCursorRepo struct {
	UpsertFn      func(ctx context.Context, ref models.ConversationRef, userID int64, at time.Time) error
	GetFn         func(ctx context.Context, ref models.ConversationRef, userID int64) (*models.ReadCursor, error)
	GetByUserFn   func(ctx context.Context, userID int64) ([]models.ReadCursor, error)
	TotalUnreadFn func(ctx context.Context, userID int64) (int, error)
}

func (m *mockCursorRepo) Upsert(ctx context.Context, ref models.ConversationRef, userID int64, at time.Time) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, ref, userID, at)
	}
	return nil
}

func (m *mockCursorRepo) Get(ctx context.Context, ref models.ConversationRef, userID int64) (*models.ReadCursor, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, ref, userID)
	}
	return nil, nil
}

func (m *mockCursorRepo) GetByUser(ctx context.Context, userID int64) ([]models.ReadCursor, error) {
	if m.GetByUserFn != nil {
		return m.GetByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockCursorRepo) TotalUnread(ctx context.Context, userID int64) (int, error) {
	if m.TotalUnreadFn != nil {
		return m.TotalUnreadFn(ctx, userID)
	}
	return 0, nil
}

// ---------------------------------------------------------------------------
// Constraint-faithful in-memory fakes
// ---------------------------------------------------------------------------

// memReactionRepo models the store-side uniqueness constraint on the
// (message, user, emoji) tuple, so concurrency properties can be tested
// without a database.
type memReactionRepo struct {
	mu     sync.Mutex
	tuples map[[2]int64]map[string]time.Time // (messageID, userID) → emoji → createdAt
}

func newMemReactionRepo() *memReactionRepo {
	return &memReactionRepo{tuples: make(map[[2]int64]map[string]time.Time)}
}

func (r *memReactionRepo) Toggle(ctx context.Context, messageID, userID int64, emoji string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := [2]int64{messageID, userID}
	emojis := r.tuples[key]
	if emojis == nil {
		emojis = make(map[string]time.Time)
		r.tuples[key] = emojis
	}
	if _, ok := emojis[emoji]; ok {
		delete(emojis, emoji)
		return false, nil
	}
	emojis[emoji] = time.Now()
	return true, nil
}

func (r *memReactionRepo) GroupsByMessage(ctx context.Context, messageID, currentUserID int64) ([]models.ReactionGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byEmoji := make(map[string]*models.ReactionGroup)
	var order []string
	for key, emojis := range r.tuples {
		if key[0] != messageID {
			continue
		}
		for emoji := range emojis {
			g := byEmoji[emoji]
			if g == nil {
				g = &models.ReactionGroup{Emoji: emoji}
				byEmoji[emoji] = g
				order = append(order, emoji)
			}
			g.Count++
			g.UserIDs = append(g.UserIDs, key[1])
			if key[1] == currentUserID {
				g.Me = true
			}
		}
	}

	var groups []models.ReactionGroup
	for _, emoji := range order {
		groups = append(groups, *byEmoji[emoji])
	}
	return groups, nil
}

func (r *memReactionRepo) UsersByEmoji(ctx context.Context, messageID int64, emoji string, limit int) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []int64
	for key, emojis := range r.tuples {
		if key[0] != messageID {
			continue
		}
		if _, ok := emojis[emoji]; ok {
			ids = append(ids, key[1])
		}
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

// has reports whether the tuple exists, for assertions.
func (r *memReactionRepo) has(messageID, userID int64, emoji string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	emojis, ok := r.tuples[[2]int64{messageID, userID}]
	if !ok {
		return false
	}
	_, ok = emojis[emoji]
	return ok
}

// memCursorRepo models the monotonic GREATEST() upsert of read cursors.
type memCursorRepo struct {
	mu      sync.Mutex
	cursors map[string]time.Time // refKey:userID → lastReadAt
}

func newMemCursorRepo() *memCursorRepo {
	return &memCursorRepo{cursors: make(map[string]time.Time)}
}

func cursorKey(ref models.ConversationRef, userID int64) string {
	prefix := "ch:"
	if ref.IsDM() {
		prefix = "dm:"
	}
	return prefix + strconv.FormatInt(ref.ID(), 10) + ":" + strconv.FormatInt(userID, 10)
}

func (r *memCursorRepo) Upsert(ctx context.Context, ref models.ConversationRef, userID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cursorKey(ref, userID)
	if existing, ok := r.cursors[key]; !ok || at.After(existing) {
		r.cursors[key] = at
	}
	return nil
}

func (r *memCursorRepo) Get(ctx context.Context, ref models.ConversationRef, userID int64) (*models.ReadCursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at, ok := r.cursors[cursorKey(ref, userID)]
	if !ok {
		return nil, nil
	}
	return &models.ReadCursor{
		UserID:           userID,
		ChannelID:        ref.ChannelID,
		DMConversationID: ref.DMConversationID,
		LastReadAt:       at,
	}, nil
}

func (r *memCursorRepo) GetByUser(ctx context.Context, userID int64) ([]models.ReadCursor, error) {
	return nil, nil
}

func (r *memCursorRepo) TotalUnread(ctx context.Context, userID int64) (int, error) {
	return 0, nil
}
