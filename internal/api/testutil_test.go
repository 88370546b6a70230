package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/snowflake"
)

const (
	testUserID    = int64(1000)
	testChannelID = int64(2000)
	testDMID      = int64(3000)
	testMsgID     = int64(5000)
)

// newTestContext builds an Echo context around a recorded request. Callers
// set path params and the matched route themselves.
func newTestContext(method, path string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()

	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// setAuthUser simulates the auth middleware.
func setAuthUser(c echo.Context, userID int64) {
	c.Set("user_id", userID)
}

func testSnowflake() *snowflake.Generator {
	sf, _ := snowflake.NewGenerator(1)
	return sf
}

// ---------------------------------------------------------------------------
// Mock gateway dispatcher
// ---------------------------------------------------------------------------

type dispatchedEvent struct {
	Topic  gateway.Topic
	UserID int64
	Event  string
	Change gateway.Change
}

type mockGateway struct {
	mu     sync.Mutex
	events []dispatchedEvent
}

func (m *mockGateway) Dispatch(topic gateway.Topic, event string, change gateway.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{Topic: topic, Event: event, Change: change})
}

func (m *mockGateway) DispatchExcept(topic gateway.Topic, exceptUserID int64, event string, change gateway.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{Topic: topic, Event: event, Change: change})
}

func (m *mockGateway) DispatchToUser(userID int64, event string, change gateway.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{UserID: userID, Event: event, Change: change})
}

func (m *mockGateway) SubscribeUser(userID int64, topic gateway.Topic)   {}
func (m *mockGateway) UnsubscribeUser(userID int64, topic gateway.Topic) {}

// ---------------------------------------------------------------------------
// Function-field mock repositories
// ---------------------------------------------------------------------------

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
	return &models.Community{ID: id, Name: "campus", OwnerID: testUserID}, nil
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

type mockReactionRepo struct {
	ToggleFn          func(ctx context.Context, messageID, userID int64, emoji string) (bool, error)
	GroupsByMessageFn func(ctx context.Context, messageID, currentUserID int64) ([]models.ReactionGroup, error)
	UsersByEmojiFn    func(ctx context.Context, messageID int64, emoji string, limit int) ([]int64, error)
}

func (m *mockReactionRepo) Toggle(ctx context.Context, messageID, userID int64, emoji string) (bool, error) {
	if m.ToggleFn != nil {
		return m.ToggleFn(ctx, messageID, userID, emoji)
	}
	return true, nil
}

func (m *mockReactionRepo) GroupsByMessage(ctx context.Context, messageID, currentUserID int64) ([]models.ReactionGroup, error) {
	if m.GroupsByMessageFn != nil {
		return m.GroupsByMessageFn(ctx, messageID, currentUserID)
	}
	return nil, nil
}

func (m *mockReactionRepo) UsersByEmoji(ctx context.Context, messageID int64, emoji string, limit int) ([]int64, error) {
	if m.UsersByEmojiFn != nil {
		return m.UsersByEmojiFn(ctx, messageID, emoji, limit)
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
	return &models.ReadCursor{UserID: userID, LastReadAt: time.Now()}, nil
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

// messageMock returns a repo holding one channel message (testMsgID in
// testChannelID) that refreshes on every GetByID.
func messageMock() *mockMessageRepo {
	return &mockMessageRepo{
		GetByIDFn: func(_ context.Context, id int64) (*models.MessageWithMeta, error) {
			if id != testMsgID {
				return nil, nil
			}
			channelID := testChannelID
			return &models.MessageWithMeta{
				Message: models.Message{
					ID: testMsgID, ChannelID: &channelID, AuthorID: testUserID,
					Content: "hello", CreatedAt: time.Now(),
				},
				AuthorUsername:    "testuser",
				AuthorDisplayName: "Test User",
			}, nil
		},
	}
}
