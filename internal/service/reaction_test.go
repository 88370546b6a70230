package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/models"
)

func newTestReactionService(reactions *memReactionRepo, gw *mockDispatcher) *ReactionService {
	channelID := int64(10)
	messages := &mockMessageRepo{
		GetByIDFn: func(ctx context.Context, id int64) (*models.MessageWithMeta, error) {
			if id != 100 {
				return nil, nil
			}
			return &models.MessageWithMeta{Message: models.Message{
				ID:        100,
				ChannelID: &channelID,
				AuthorID:  1,
				Content:   "hello",
				CreatedAt: time.Now(),
			}}, nil
		},
	}
	return NewReactionService(reactions, messages, &mockChannelRepo{}, &mockCommunityRepo{}, &mockDMRepo{}, gw)
}

func TestToggle_AddThenRemove(t *testing.T) {
	reactions := newMemReactionRepo()
	svc := newTestReactionService(reactions, &mockDispatcher{})

	result, err := svc.Toggle(context.Background(), 100, 2, "👍")
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !result.Added {
		t.Error("expected first toggle to add")
	}
	if !reactions.has(100, 2, "👍") {
		t.Error("expected tuple to exist after add")
	}
	if len(result.Groups) != 1 || result.Groups[0].Count != 1 {
		t.Errorf("expected one group with count 1, got %+v", result.Groups)
	}

	result, err = svc.Toggle(context.Background(), 100, 2, "👍")
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if result.Added {
		t.Error("expected second toggle to remove")
	}
	if reactions.has(100, 2, "👍") {
		t.Error("expected tuple to be gone after remove")
	}
	if len(result.Groups) != 0 {
		t.Errorf("expected no groups after remove, got %+v", result.Groups)
	}
}

func TestToggle_InvalidEmoji(t *testing.T) {
	svc := newTestReactionService(newMemReactionRepo(), &mockDispatcher{})

	if _, err := svc.Toggle(context.Background(), 100, 2, ""); !errors.Is(err, ErrBadRequest) {
		t.Errorf("empty emoji: expected bad request, got %v", err)
	}

	long := make([]byte, 65)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := svc.Toggle(context.Background(), 100, 2, string(long)); !errors.Is(err, ErrBadRequest) {
		t.Errorf("oversized emoji: expected bad request, got %v", err)
	}
}

func TestToggle_MessageNotFound(t *testing.T) {
	svc := newTestReactionService(newMemReactionRepo(), &mockDispatcher{})

	if _, err := svc.Toggle(context.Background(), 999, 2, "👍"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

// Concurrent toggles by different users on the same emoji must all land:
// the flip is a single store-side operation, not read-modify-write.
func TestToggle_ConcurrentUsersDoNotClobber(t *testing.T) {
	reactions := newMemReactionRepo()
	svc := newTestReactionService(reactions, &mockDispatcher{})

	const users = 20
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			if _, err := svc.Toggle(context.Background(), 100, userID, "🎉"); err != nil {
				t.Errorf("toggle by user %d: %v", userID, err)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	groups, err := svc.Groups(context.Background(), 100, 1)
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	if groups[0].Count != users {
		t.Errorf("expected count %d, got %d", users, groups[0].Count)
	}
}

func TestToggle_DispatchesReactionUpdate(t *testing.T) {
	gw := &mockDispatcher{}
	svc := newTestReactionService(newMemReactionRepo(), gw)

	if _, err := svc.Toggle(context.Background(), 100, 2, "👍"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	events := gw.byEvent(gateway.EventMessageReactionUpdate)
	if len(events) != 1 {
		t.Fatalf("expected 1 reaction event, got %d", len(events))
	}
	if events[0].Change.Kind != gateway.ChangeUpdate {
		t.Errorf("add: expected update change, got %s", events[0].Change.Kind)
	}
	if events[0].Topic != gateway.ChannelTopic(10) {
		t.Errorf("expected channel topic 10, got %+v", events[0].Topic)
	}

	if _, err := svc.Toggle(context.Background(), 100, 2, "👍"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	events = gw.byEvent(gateway.EventMessageReactionUpdate)
	if len(events) != 2 {
		t.Fatalf("expected 2 reaction events, got %d", len(events))
	}
	if events[1].Change.Kind != gateway.ChangeDelete {
		t.Errorf("remove: expected delete change, got %s", events[1].Change.Kind)
	}
}

func TestGroups_MeFlag(t *testing.T) {
	reactions := newMemReactionRepo()
	svc := newTestReactionService(reactions, &mockDispatcher{})

	if _, err := svc.Toggle(context.Background(), 100, 2, "👍"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := svc.Toggle(context.Background(), 100, 3, "👍"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	groups, err := svc.Groups(context.Background(), 100, 2)
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if len(groups) != 1 || !groups[0].Me {
		t.Errorf("expected Me=true for reacting user, got %+v", groups)
	}

	groups, err = svc.Groups(context.Background(), 100, 4)
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Me {
		t.Errorf("expected Me=false for bystander, got %+v", groups)
	}
}

func TestReactors_RequiresEmoji(t *testing.T) {
	svc := newTestReactionService(newMemReactionRepo(), &mockDispatcher{})

	if _, err := svc.Reactors(context.Background(), 100, 2, "", 10); !errors.Is(err, ErrBadRequest) {
		t.Errorf("expected bad request, got %v", err)
	}
}
