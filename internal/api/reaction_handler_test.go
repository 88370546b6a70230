package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/service"
)

func newReactionHandler(reactions *mockReactionRepo, msgs *mockMessageRepo, gw *mockGateway) *ReactionHandler {
	svc := service.NewReactionService(reactions, msgs, &mockChannelRepo{}, &mockCommunityRepo{}, &mockDMRepo{}, gw)
	return NewReactionHandler(svc)
}

func TestToggleReaction_Add(t *testing.T) {
	reactions := &mockReactionRepo{
		ToggleFn: func(_ context.Context, messageID, userID int64, emoji string) (bool, error) {
			return true, nil
		},
		GroupsByMessageFn: func(_ context.Context, messageID, currentUserID int64) ([]models.ReactionGroup, error) {
			return []models.ReactionGroup{{Emoji: "👍", Count: 1, Me: true, UserIDs: []int64{currentUserID}}}, nil
		},
	}
	gw := &mockGateway{}
	h := newReactionHandler(reactions, messageMock(), gw)

	c, rec := newTestContext(http.MethodPut, "/api/v1/channels/2000/messages/5000/reactions/%F0%9F%91%8D/@me", nil)
	c.SetPath("/api/v1/channels/:id/messages/:message_id/reactions/:emoji/@me")
	c.SetParamNames("id", "message_id", "emoji")
	c.SetParamValues("2000", "5000", "%F0%9F%91%8D")
	setAuthUser(c, testUserID)

	if err := h.ToggleReaction(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result service.ToggleResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if !result.Added {
		t.Error("expected added=true")
	}
	if len(result.Groups) != 1 || result.Groups[0].Count != 1 {
		t.Errorf("unexpected groups: %+v", result.Groups)
	}
	if len(gw.events) != 1 || gw.events[0].Event != gateway.EventMessageReactionUpdate {
		t.Fatalf("expected MESSAGE_REACTION_UPDATE event, got %+v", gw.events)
	}
}

func TestToggleReaction_Remove(t *testing.T) {
	reactions := &mockReactionRepo{
		ToggleFn: func(_ context.Context, messageID, userID int64, emoji string) (bool, error) {
			return false, nil
		},
	}
	gw := &mockGateway{}
	h := newReactionHandler(reactions, messageMock(), gw)

	c, rec := newTestContext(http.MethodPut, "/api/v1/channels/2000/messages/5000/reactions/%F0%9F%91%8D/@me", nil)
	c.SetPath("/api/v1/channels/:id/messages/:message_id/reactions/:emoji/@me")
	c.SetParamNames("id", "message_id", "emoji")
	c.SetParamValues("2000", "5000", "%F0%9F%91%8D")
	setAuthUser(c, testUserID)

	if err := h.ToggleReaction(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(gw.events) != 1 || gw.events[0].Change.Kind != gateway.ChangeDelete {
		t.Fatalf("expected delete change on removal, got %+v", gw.events)
	}
}

func TestToggleReaction_EmptyEmoji(t *testing.T) {
	h := newReactionHandler(&mockReactionRepo{}, messageMock(), &mockGateway{})

	c, rec := newTestContext(http.MethodPut, "/api/v1/channels/2000/messages/5000/reactions//@me", nil)
	c.SetPath("/api/v1/channels/:id/messages/:message_id/reactions/:emoji/@me")
	c.SetParamNames("id", "message_id", "emoji")
	c.SetParamValues("2000", "5000", "")
	setAuthUser(c, testUserID)

	_ = h.ToggleReaction(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestToggleReaction_MessageNotFound(t *testing.T) {
	h := newReactionHandler(&mockReactionRepo{}, &mockMessageRepo{}, &mockGateway{})

	c, rec := newTestContext(http.MethodPut, "/api/v1/channels/2000/messages/404/reactions/%F0%9F%91%8D/@me", nil)
	c.SetPath("/api/v1/channels/:id/messages/:message_id/reactions/:emoji/@me")
	c.SetParamNames("id", "message_id", "emoji")
	c.SetParamValues("2000", "404", "%F0%9F%91%8D")
	setAuthUser(c, testUserID)

	_ = h.ToggleReaction(c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetReactionGroups_Success(t *testing.T) {
	reactions := &mockReactionRepo{
		GroupsByMessageFn: func(_ context.Context, messageID, currentUserID int64) ([]models.ReactionGroup, error) {
			return []models.ReactionGroup{
				{Emoji: "👍", Count: 2, UserIDs: []int64{1, 2}},
				{Emoji: "🎉", Count: 1, Me: true, UserIDs: []int64{currentUserID}},
			}, nil
		},
	}
	h := newReactionHandler(reactions, messageMock(), &mockGateway{})

	c, rec := newTestContext(http.MethodGet, "/api/v1/channels/2000/messages/5000/reactions", nil)
	c.SetPath("/api/v1/channels/:id/messages/:message_id/reactions")
	c.SetParamNames("id", "message_id")
	c.SetParamValues("2000", "5000")
	setAuthUser(c, testUserID)

	if err := h.GetReactionGroups(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var groups []models.ReactionGroup
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatalf("decoding groups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
}
