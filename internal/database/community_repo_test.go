package database

import (
	"context"
	"testing"
)

func TestCommunityRepo_CreateAndGet(t *testing.T) {
	pool := testPool(t)
	userRepo := NewUserRepository(pool)
	repo := NewCommunityRepository(pool)
	ctx := context.Background()

	owner := createTestUser(t, userRepo)
	community := createTestCommunity(t, repo, owner.ID)

	got, err := repo.GetByID(ctx, community.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil after Create")
	}
	if got.OwnerID != owner.ID {
		t.Errorf("OwnerID = %d, want %d", got.OwnerID, owner.ID)
	}
}

func TestCommunityRepo_Membership(t *testing.T) {
	pool := testPool(t)
	userRepo := NewUserRepository(pool)
	repo := NewCommunityRepository(pool)
	ctx := context.Background()

	owner := createTestUser(t, userRepo)
	member := createTestUser(t, userRepo)
	community := createTestCommunity(t, repo, owner.ID)

	in, err := repo.IsMember(ctx, community.ID, member.ID)
	if err != nil {
		t.Fatalf("IsMember: %v", err)
	}
	if in {
		t.Error("user should not be a member before joining")
	}

	if err := repo.AddMember(ctx, community.ID, member.ID); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	in, err = repo.IsMember(ctx, community.ID, member.ID)
	if err != nil {
		t.Fatalf("IsMember after join: %v", err)
	}
	if !in {
		t.Error("user should be a member after joining")
	}

	if err := repo.RemoveMember(ctx, community.ID, member.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	in, err = repo.IsMember(ctx, community.ID, member.ID)
	if err != nil {
		t.Fatalf("IsMember after leave: %v", err)
	}
	if in {
		t.Error("user should not be a member after leaving")
	}
}

func TestCommunityRepo_GetByMember(t *testing.T) {
	pool := testPool(t)
	userRepo := NewUserRepository(pool)
	repo := NewCommunityRepository(pool)
	ctx := context.Background()

	owner := createTestUser(t, userRepo)
	community := createTestCommunity(t, repo, owner.ID)

	communities, err := repo.GetByMember(ctx, owner.ID)
	if err != nil {
		t.Fatalf("GetByMember: %v", err)
	}
	found := false
	for _, c := range communities {
		if c.ID == community.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("community %d missing from owner's list", community.ID)
	}
}
