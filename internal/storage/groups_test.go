package storage

import (
	"context"
	"errors"
	"testing"
)

func TestCreateGroup_CreatorBecomesAdministrator(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := createTestUser(t, store, "alice@example.com")
	groupID, err := store.CreateGroup(ctx, alice, "hikers", nil, PrivacyLevelPublic, nil)
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	membership, err := store.GetMembership(ctx, groupID, alice)
	if err != nil {
		t.Fatalf("GetMembership() error = %v", err)
	}
	if membership.Administrator != MemberRoleAdministrator {
		t.Fatalf("creator role = %d, want administrator", membership.Administrator)
	}
}

func TestCreateGroup_InvalidPrivacyRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := createTestUser(t, store, "alice@example.com")
	if _, err := store.CreateGroup(ctx, alice, "bad", nil, 5, nil); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("CreateGroup() error = %v, want ErrInvalidValue", err)
	}
}

func TestUpdateGroup_Partial(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := createTestUser(t, store, "alice@example.com")
	desc := "we hike"
	groupID, err := store.CreateGroup(ctx, alice, "hikers", nil, PrivacyLevelSecret, &desc)
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	if err := store.UpdateGroup(ctx, groupID, GroupUpdate{
		PrivacyLevel: SetField[int64](PrivacyLevelPrivate),
	}); err != nil {
		t.Fatalf("UpdateGroup() error = %v", err)
	}

	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("GetGroup() error = %v", err)
	}
	if group.PrivacyLevel != PrivacyLevelPrivate {
		t.Fatalf("PrivacyLevel = %d, want private", group.PrivacyLevel)
	}
	if group.Name != "hikers" {
		t.Fatalf("Name = %q, want untouched %q", group.Name, "hikers")
	}
	if group.Description == nil || *group.Description != "we hike" {
		t.Fatalf("Description = %v, want untouched %q", group.Description, "we hike")
	}
}

func TestMembershipLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := createTestUser(t, store, "alice@example.com")
	bob := createTestUser(t, store, "bob@example.com")
	groupID, err := store.CreateGroup(ctx, alice, "hikers", nil, PrivacyLevelPublic, nil)
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	if err := store.AddMemberToGroup(ctx, groupID, bob); err != nil {
		t.Fatalf("AddMemberToGroup() error = %v", err)
	}
	if err := store.AddMemberToGroup(ctx, groupID, bob); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate membership error = %v, want ErrAlreadyExists", err)
	}

	members, err := store.ListMembersForGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("ListMembersForGroup() error = %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("len(members) = %d, want 2", len(members))
	}

	// Promote, then promoting again is a no-change.
	if err := store.UpdateMemberRole(ctx, groupID, bob, MemberRoleAdministrator); err != nil {
		t.Fatalf("UpdateMemberRole() error = %v", err)
	}
	if err := store.UpdateMemberRole(ctx, groupID, bob, MemberRoleAdministrator); !errors.Is(err, ErrNoChange) {
		t.Fatalf("repeat promote error = %v, want ErrNoChange", err)
	}
	if err := store.UpdateMemberRole(ctx, groupID, 99, MemberRoleUser); !errors.Is(err, ErrNotFound) {
		t.Fatalf("promote missing member error = %v, want ErrNotFound", err)
	}

	if err := store.RemoveMemberFromGroup(ctx, groupID, bob); err != nil {
		t.Fatalf("RemoveMemberFromGroup() error = %v", err)
	}
	if err := store.RemoveMemberFromGroup(ctx, groupID, bob); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove error = %v, want ErrNotFound", err)
	}
}

func TestRequestMembership_OnlyPrivateGroups(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := createTestUser(t, store, "alice@example.com")
	bob := createTestUser(t, store, "bob@example.com")

	public, err := store.CreateGroup(ctx, alice, "open", nil, PrivacyLevelPublic, nil)
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	secret, err := store.CreateGroup(ctx, alice, "hidden", nil, PrivacyLevelSecret, nil)
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	private, err := store.CreateGroup(ctx, alice, "invite", nil, PrivacyLevelPrivate, nil)
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	if err := store.RequestMembership(ctx, public, bob); !errors.Is(err, ErrRequestNotAllowed) {
		t.Fatalf("request to public group error = %v, want ErrRequestNotAllowed", err)
	}
	if err := store.RequestMembership(ctx, secret, bob); !errors.Is(err, ErrRequestNotAllowed) {
		t.Fatalf("request to secret group error = %v, want ErrRequestNotAllowed", err)
	}
	if err := store.RequestMembership(ctx, private, bob); err != nil {
		t.Fatalf("request to private group error = %v", err)
	}
	if err := store.RequestMembership(ctx, private, bob); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate request error = %v, want ErrAlreadyExists", err)
	}
	// An existing member cannot file a request.
	if err := store.RequestMembership(ctx, private, alice); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("member request error = %v, want ErrAlreadyExists", err)
	}
}

func TestAcceptGroupRequest_MovesRequestToMembership(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := createTestUser(t, store, "alice@example.com")
	bob := createTestUser(t, store, "bob@example.com")
	groupID, err := store.CreateGroup(ctx, alice, "invite", nil, PrivacyLevelPrivate, nil)
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	if err := store.RequestMembership(ctx, groupID, bob); err != nil {
		t.Fatalf("RequestMembership() error = %v", err)
	}
	if err := store.AcceptGroupRequest(ctx, groupID, bob); err != nil {
		t.Fatalf("AcceptGroupRequest() error = %v", err)
	}

	requests, err := store.ListRequestsForGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("ListRequestsForGroup() error = %v", err)
	}
	if len(requests) != 0 {
		t.Fatalf("requests after accept = %d, want 0", len(requests))
	}
	membership, err := store.GetMembership(ctx, groupID, bob)
	if err != nil {
		t.Fatalf("GetMembership() error = %v", err)
	}
	if membership.Administrator != MemberRoleUser {
		t.Fatalf("accepted member role = %d, want plain member", membership.Administrator)
	}

	if err := store.AcceptGroupRequest(ctx, groupID, bob); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second accept error = %v, want ErrNotFound", err)
	}
}

func TestDeclineGroupRequest(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := createTestUser(t, store, "alice@example.com")
	bob := createTestUser(t, store, "bob@example.com")
	groupID, err := store.CreateGroup(ctx, alice, "invite", nil, PrivacyLevelPrivate, nil)
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	if err := store.RequestMembership(ctx, groupID, bob); err != nil {
		t.Fatalf("RequestMembership() error = %v", err)
	}
	if err := store.DeclineGroupRequest(ctx, groupID, bob); err != nil {
		t.Fatalf("DeclineGroupRequest() error = %v", err)
	}
	if _, err := store.GetMembership(ctx, groupID, bob); !errors.Is(err, ErrNotFound) {
		t.Fatalf("declined user has membership: %v", err)
	}
	// The slate is clean; bob can request again.
	if err := store.RequestMembership(ctx, groupID, bob); err != nil {
		t.Fatalf("re-request after decline error = %v", err)
	}
}

func TestDeleteGroup_StatusesSurviveOnCreatorWall(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := createTestUser(t, store, "alice@example.com")
	groupID, err := store.CreateGroup(ctx, alice, "doomed", nil, PrivacyLevelPublic, nil)
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	statusID, err := store.CreateStatus(ctx, alice, "posted in group", &groupID, 1000)
	if err != nil {
		t.Fatalf("CreateStatus() error = %v", err)
	}

	if err := store.DeleteGroup(ctx, groupID); err != nil {
		t.Fatalf("DeleteGroup() error = %v", err)
	}

	if _, err := store.GetStatus(ctx, statusID); err != nil {
		t.Fatalf("status should survive group delete: %v", err)
	}
	memberships, err := store.ListMembershipsForUser(ctx, alice)
	if err != nil {
		t.Fatalf("ListMembershipsForUser() error = %v", err)
	}
	if len(memberships) != 0 {
		t.Fatalf("memberships after group delete = %d, want 0", len(memberships))
	}
}
