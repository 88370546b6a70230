package database

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ewittman/quad/internal/models"
)

// testPool returns a pgxpool.Pool connected to the test database.
// It skips the test if DATABASE_URL is not set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// testIDCounter provides unique IDs across all tests in the package.
// Starts well above zero to avoid conflicts with any existing data.
var testIDCounter int64 = 100000

func nextID() int64 {
	return atomic.AddInt64(&testIDCounter, 1)
}

// createTestUser inserts a user with a unique username and registers cleanup.
func createTestUser(t *testing.T, repo UserRepository) *models.User {
	t.Helper()
	ctx := context.Background()
	id := nextID()
	u := &models.User{
		ID:           id,
		Username:     "testuser-" + time.Now().Format("150405.000000000"),
		DisplayName:  "Test User",
		PasswordHash: "not-a-real-hash",
		CreatedAt:    time.Now().Truncate(time.Microsecond),
	}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("createTestUser: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, id) })
	return u
}

// createTestCommunity inserts a community owned by ownerID, adds the owner
// as a member, and registers cleanup.
func createTestCommunity(t *testing.T, repo CommunityRepository, ownerID int64) *models.Community {
	t.Helper()
	ctx := context.Background()
	id := nextID()
	c := &models.Community{
		ID:        id,
		Name:      "Test Community",
		OwnerID:   ownerID,
		CreatedAt: time.Now().Truncate(time.Microsecond),
	}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("createTestCommunity: %v", err)
	}
	if err := repo.AddMember(ctx, id, ownerID); err != nil {
		t.Fatalf("createTestCommunity: adding owner: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, id) })
	return c
}

// createTestChannel inserts a text channel and registers cleanup.
func createTestChannel(t *testing.T, repo ChannelRepository, communityID int64) *models.Channel {
	t.Helper()
	return createTestChannelKind(t, repo, communityID, models.ChannelText)
}

func createTestChannelKind(t *testing.T, repo ChannelRepository, communityID int64, kind models.ChannelKind) *models.Channel {
	t.Helper()
	ctx := context.Background()
	id := nextID()
	ch := &models.Channel{
		ID:          id,
		CommunityID: communityID,
		Name:        "test-channel-" + time.Now().Format("150405.000000000"),
		Kind:        kind,
		Position:    0,
	}
	if err := repo.Create(ctx, ch); err != nil {
		t.Fatalf("createTestChannel: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, id) })
	return ch
}

// createTestDM inserts a two-person DM conversation and registers cleanup.
// The repository exposes no delete, so cleanup goes through the pool.
func createTestDM(t *testing.T, repo DMConversationRepository, user1ID, user2ID int64) *models.DMConversation {
	t.Helper()
	ctx := context.Background()
	dm, err := repo.GetOrCreateDirect(ctx, user1ID, user2ID, nextID())
	if err != nil {
		t.Fatalf("createTestDM: %v", err)
	}
	return dm
}

// cleanupDM deletes a DM conversation row directly.
func cleanupDM(t *testing.T, pool *pgxpool.Pool, dmID int64) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM dm_conversations WHERE id = $1`, dmID)
	})
}

// createTestMessage inserts a channel message and registers cleanup.
func createTestMessage(t *testing.T, repo MessageRepository, channelID, authorID int64, content string) *models.Message {
	t.Helper()
	ctx := context.Background()
	id := nextID()
	msg := &models.Message{
		ID:        id,
		ChannelID: &channelID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now().Truncate(time.Microsecond),
	}
	if err := repo.Create(ctx, msg); err != nil {
		t.Fatalf("createTestMessage: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, id) })
	return msg
}
