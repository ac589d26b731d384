package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateFriendship_PairIsUndirected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := createTestUser(t, store, "alice@example.com")
	bob := createTestUser(t, store, "bob@example.com")

	if _, err := store.CreateFriendship(ctx, alice, bob); err != nil {
		t.Fatalf("CreateFriendship() error = %v", err)
	}

	// Same order and reverse order are both duplicates of the existing pair.
	if _, err := store.CreateFriendship(ctx, alice, bob); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("same-order duplicate error = %v, want ErrAlreadyExists", err)
	}
	if _, err := store.CreateFriendship(ctx, bob, alice); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("reverse-order duplicate error = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateFriendship_UnknownUserRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := createTestUser(t, store, "alice@example.com")
	if _, err := store.CreateFriendship(ctx, alice, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("CreateFriendship() error = %v, want ErrNotFound", err)
	}
}

func TestAcceptFriendship_SetsStatusAndStart(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := createTestUser(t, store, "alice@example.com")
	bob := createTestUser(t, store, "bob@example.com")

	friendshipID, err := store.CreateFriendship(ctx, alice, bob)
	if err != nil {
		t.Fatalf("CreateFriendship() error = %v", err)
	}

	friendship, err := store.GetFriendship(ctx, friendshipID)
	if err != nil {
		t.Fatalf("GetFriendship() error = %v", err)
	}
	if friendship.Status != FriendshipStatusPending {
		t.Fatalf("Status = %d, want pending", friendship.Status)
	}
	if friendship.StartMs != nil {
		t.Fatalf("StartMs = %v, want nil before accept", *friendship.StartMs)
	}

	nowMs := time.Now().UnixMilli()
	if err := store.AcceptFriendship(ctx, friendshipID, nowMs); err != nil {
		t.Fatalf("AcceptFriendship() error = %v", err)
	}

	friendship, err = store.GetFriendship(ctx, friendshipID)
	if err != nil {
		t.Fatalf("GetFriendship() error = %v", err)
	}
	if friendship.Status != FriendshipStatusAccepted {
		t.Fatalf("Status = %d, want accepted", friendship.Status)
	}
	if friendship.StartMs == nil || *friendship.StartMs != nowMs {
		t.Fatalf("StartMs = %v, want %d", friendship.StartMs, nowMs)
	}
}

func TestListFriendshipsForUser_AcceptedBeforePending(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := createTestUser(t, store, "alice@example.com")
	bob := createTestUser(t, store, "bob@example.com")
	carol := createTestUser(t, store, "carol@example.com")

	accepted, err := store.CreateFriendship(ctx, alice, bob)
	if err != nil {
		t.Fatalf("CreateFriendship() error = %v", err)
	}
	if err := store.AcceptFriendship(ctx, accepted, time.Now().UnixMilli()); err != nil {
		t.Fatalf("AcceptFriendship() error = %v", err)
	}
	pending, err := store.CreateFriendship(ctx, carol, alice)
	if err != nil {
		t.Fatalf("CreateFriendship() error = %v", err)
	}

	friendships, err := store.ListFriendshipsForUser(ctx, alice)
	if err != nil {
		t.Fatalf("ListFriendshipsForUser() error = %v", err)
	}
	if len(friendships) != 2 {
		t.Fatalf("len = %d, want 2", len(friendships))
	}
	if friendships[0].FriendshipID != accepted {
		t.Fatalf("first = %d, want accepted %d", friendships[0].FriendshipID, accepted)
	}
	if friendships[1].FriendshipID != pending {
		t.Fatalf("second = %d, want pending %d", friendships[1].FriendshipID, pending)
	}
}

func TestDeleteFriendship(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := createTestUser(t, store, "alice@example.com")
	bob := createTestUser(t, store, "bob@example.com")

	friendshipID, err := store.CreateFriendship(ctx, alice, bob)
	if err != nil {
		t.Fatalf("CreateFriendship() error = %v", err)
	}
	if err := store.DeleteFriendship(ctx, friendshipID); err != nil {
		t.Fatalf("DeleteFriendship() error = %v", err)
	}
	if err := store.DeleteFriendship(ctx, friendshipID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteFriendship() error = %v, want ErrNotFound", err)
	}

	// The pair is free again after removal.
	if _, err := store.CreateFriendship(ctx, bob, alice); err != nil {
		t.Fatalf("CreateFriendship() after delete error = %v", err)
	}
}
