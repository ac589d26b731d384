package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateUser_DuplicateEmailRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	createTestUser(t, store, "dup@example.com")
	_, err := store.CreateUser(ctx, NewUser{
		Email:     "dup@example.com",
		Password:  "other",
		FirstName: "Other",
		Surname:   "User",
		Age:       20,
		Gender:    GenderFemale,
	}, time.Now().UnixMilli())
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("CreateUser() error = %v, want ErrEmailExists", err)
	}
}

func TestCreateUser_InvalidGenderRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.CreateUser(ctx, NewUser{
		Email:     "g@example.com",
		Password:  "pw",
		FirstName: "G",
		Surname:   "User",
		Age:       20,
		Gender:    7,
	}, time.Now().UnixMilli())
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("CreateUser() error = %v, want ErrInvalidValue", err)
	}
}

func TestCreateUser_MissingProfilePictureLeavesNoUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	missing := int64(99)
	_, err := store.CreateUser(ctx, NewUser{
		Email:         "pic@example.com",
		Password:      "pw",
		FirstName:     "Pic",
		Surname:       "User",
		ProfPictureID: &missing,
		Age:           20,
		Gender:        GenderMale,
	}, time.Now().UnixMilli())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("CreateUser() error = %v, want ErrNotFound", err)
	}

	// The credentials insert must have been rolled back with the profile.
	exists, err := store.EmailExists(ctx, "pic@example.com")
	if err != nil {
		t.Fatalf("EmailExists() error = %v", err)
	}
	if exists {
		t.Fatal("credentials row survived a failed profile insert")
	}
}

func TestAuthenticateUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	userID := createTestUser(t, store, "auth@example.com")

	got, err := store.AuthenticateUser(ctx, "auth@example.com", "secret-hash")
	if err != nil {
		t.Fatalf("AuthenticateUser() error = %v", err)
	}
	if got != userID {
		t.Fatalf("AuthenticateUser() = %d, want %d", got, userID)
	}

	if _, err := store.AuthenticateUser(ctx, "auth@example.com", "wrong"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AuthenticateUser() with wrong password error = %v, want ErrNotFound", err)
	}
}

func TestUpdateUser_PartialTouchesOnlySuppliedFields(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	userID := createTestUser(t, store, "upd@example.com")

	middle := "Quincy"
	if err := store.UpdateUser(ctx, userID, UserUpdate{
		MiddleName: SetField(&middle),
		Age:        SetField[int64](31),
	}); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	profile, err := store.GetUserProfile(ctx, userID)
	if err != nil {
		t.Fatalf("GetUserProfile() error = %v", err)
	}
	if profile.MiddleName == nil || *profile.MiddleName != "Quincy" {
		t.Fatalf("MiddleName = %v, want Quincy", profile.MiddleName)
	}
	if profile.Age != 31 {
		t.Fatalf("Age = %d, want 31", profile.Age)
	}
	if profile.FirstName != "Test" {
		t.Fatalf("FirstName = %q, want untouched %q", profile.FirstName, "Test")
	}

	// A set nil pointer clears the column instead of leaving it alone.
	if err := store.UpdateUser(ctx, userID, UserUpdate{MiddleName: SetField[*string](nil)}); err != nil {
		t.Fatalf("UpdateUser() clear error = %v", err)
	}
	profile, err = store.GetUserProfile(ctx, userID)
	if err != nil {
		t.Fatalf("GetUserProfile() error = %v", err)
	}
	if profile.MiddleName != nil {
		t.Fatalf("MiddleName = %v, want nil after clear", *profile.MiddleName)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.UpdateUser(ctx, 42, UserUpdate{Age: SetField[int64](50)})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateUser() error = %v, want ErrNotFound", err)
	}
}

func TestSearchUsers_SubstringMatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	nowMs := time.Now().UnixMilli()
	if _, err := store.CreateUser(ctx, NewUser{
		Email: "ann@example.com", Password: "pw",
		FirstName: "Annabelle", Surname: "Smithson", Age: 28, Gender: GenderFemale,
	}, nowMs); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if _, err := store.CreateUser(ctx, NewUser{
		Email: "bob@example.com", Password: "pw",
		FirstName: "Bob", Surname: "Jones", Age: 40, Gender: GenderMale,
	}, nowMs); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	results, err := store.SearchUsers(ctx, "nna", "mith")
	if err != nil {
		t.Fatalf("SearchUsers() error = %v", err)
	}
	if len(results) != 1 || results[0].FirstName != "Annabelle" {
		t.Fatalf("SearchUsers() = %v, want single Annabelle", results)
	}

	none, err := store.SearchUsers(ctx, "zzz", "")
	if err != nil {
		t.Fatalf("SearchUsers() error = %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("SearchUsers() = %d results, want 0", len(none))
	}
}

func TestDeleteUser_CascadesAndRejectsUnknown(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	userID := createTestUser(t, store, "gone@example.com")
	if _, err := store.CreateStatus(ctx, userID, "last words", nil, time.Now().UnixMilli()); err != nil {
		t.Fatalf("CreateStatus() error = %v", err)
	}

	if err := store.DeleteUser(ctx, userID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if _, err := store.GetUserProfile(ctx, userID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetUserProfile() after delete error = %v, want ErrNotFound", err)
	}
	statuses, err := store.ListStatusesForUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListStatusesForUser() error = %v", err)
	}
	if len(statuses) != 0 {
		t.Fatalf("statuses after user delete = %d, want 0", len(statuses))
	}

	// Deleting again fails and leaves the rest of the data alone.
	other := createTestUser(t, store, "stay@example.com")
	if err := store.DeleteUser(ctx, userID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteUser() error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetUserProfile(ctx, other); err != nil {
		t.Fatalf("unrelated user affected by failed delete: %v", err)
	}
}
