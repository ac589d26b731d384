package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"friendsnet-backend/internal/storage"
)

func (api *v1API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.handleSearchUsers(w, r)
	default:
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
	}
}

func (api *v1API) handleUserSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	parts := splitPath(rest)
	if len(parts) == 0 {
		writeAPIError(w, ErrCodeNotFound, "not found")
		return
	}

	userID, ok := parseID(parts[0])
	if !ok {
		writeAPIError(w, ErrCodeValidation, "invalid user id")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			api.handleGetUser(w, r, userID)
		case http.MethodPut:
			api.handleUpdateUser(w, r, userID)
		case http.MethodDelete:
			api.handleDeleteUser(w, r, userID)
		default:
			writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
		}
		return
	}

	if len(parts) != 2 || r.Method != http.MethodGet {
		writeAPIError(w, ErrCodeNotFound, "not found")
		return
	}

	// Collection subroutes 404 when the user does not exist, so an empty
	// collection and a missing user stay distinguishable.
	if _, err := api.store.GetUserProfile(r.Context(), userID); err != nil {
		api.writeStoreError(w, err, ErrCodeUserNotFound, "user")
		return
	}

	switch parts[1] {
	case "statuses":
		api.listForUser(w, r, userID, func() (any, error) {
			statuses, err := api.store.ListStatusesForUser(r.Context(), userID)
			return map[string]any{"statuses": toStatusItems(statuses)}, err
		})
	case "feed":
		api.handleFriendFeed(w, r, userID)
	case "friendships":
		api.listForUser(w, r, userID, func() (any, error) {
			friendships, err := api.store.ListFriendshipsForUser(r.Context(), userID)
			items := make([]friendshipItem, 0, len(friendships))
			for _, f := range friendships {
				items = append(items, toFriendshipItem(f))
			}
			return map[string]any{"friendships": items}, err
		})
	case "comments":
		api.listForUser(w, r, userID, func() (any, error) {
			comments, err := api.store.ListCommentsForUser(r.Context(), userID)
			items := make([]commentItem, 0, len(comments))
			for _, c := range comments {
				items = append(items, toCommentItem(c))
			}
			return map[string]any{"comments": items}, err
		})
	case "rates":
		api.listForUser(w, r, userID, func() (any, error) {
			rates, err := api.store.ListRatesForUser(r.Context(), userID)
			items := make([]rateItem, 0, len(rates))
			for _, rt := range rates {
				items = append(items, toRateItem(rt))
			}
			return map[string]any{"rates": items}, err
		})
	case "tagged":
		api.listForUser(w, r, userID, func() (any, error) {
			statuses, err := api.store.ListTaggedStatusesForUser(r.Context(), userID)
			return map[string]any{"statuses": toStatusItems(statuses)}, err
		})
	case "groups":
		api.listForUser(w, r, userID, func() (any, error) {
			memberships, err := api.store.ListMembershipsForUser(r.Context(), userID)
			items := make([]membershipItem, 0, len(memberships))
			for _, m := range memberships {
				items = append(items, toMembershipItem(m))
			}
			return map[string]any{"memberships": items}, err
		})
	case "conversations":
		api.listForUser(w, r, userID, func() (any, error) {
			conversations, err := api.store.ListConversationsForUser(r.Context(), userID)
			items := make([]conversationItem, 0, len(conversations))
			for _, c := range conversations {
				items = append(items, toConversationItem(c))
			}
			return map[string]any{"conversations": items}, err
		})
	default:
		writeAPIError(w, ErrCodeNotFound, "not found")
	}
}

func (api *v1API) listForUser(w http.ResponseWriter, _ *http.Request, userID int64, list func() (any, error)) {
	resp, err := list()
	if err != nil {
		api.logger.Error("list for user failed", "userID", userID, "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type searchUsersResponse struct {
	Users []userItem `json:"users"`
}

func (api *v1API) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	firstName := strings.TrimSpace(r.URL.Query().Get("firstName"))
	surname := strings.TrimSpace(r.URL.Query().Get("surname"))
	if firstName == "" && surname == "" {
		writeAPIError(w, ErrCodeValidation, "firstName or surname is required")
		return
	}

	profiles, err := api.store.SearchUsers(r.Context(), firstName, surname)
	if err != nil {
		api.logger.Error("search users failed", "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}

	items := make([]userItem, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, toUserItem(p))
	}
	writeJSON(w, http.StatusOK, searchUsersResponse{Users: items})
}

func (api *v1API) handleGetUser(w http.ResponseWriter, r *http.Request, userID int64) {
	profile, err := api.store.GetUserProfile(r.Context(), userID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeUserNotFound, "user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]userItem{"user": toUserItem(profile)})
}

type updateUserRequest struct {
	Password  *string `json:"password,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	Surname   *string `json:"surname,omitempty"`
	Age       *int64  `json:"age,omitempty"`
	Gender    *int64  `json:"gender,omitempty"`

	// Nullable columns: set, cleared with an explicit null, or left absent.
	MiddleName    jsonOptional[*string] `json:"middleName"`
	ProfPictureID jsonOptional[*int64]  `json:"profPictureId"`
}

// jsonOptional records whether a JSON field was present at all, so a PUT can
// tell "leave alone" apart from "set to null".
type jsonOptional[T any] struct {
	Set   bool
	Value T
}

func (o *jsonOptional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

func bcryptHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (api *v1API) handleUpdateUser(w http.ResponseWriter, r *http.Request, userID int64) {
	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if currentUserID != userID {
		writeAPIError(w, ErrCodeNotParticipant, "cannot update another user")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIError(w, ErrCodeValidation, "invalid JSON body")
		return
	}

	var upd storage.UserUpdate
	if req.Password != nil {
		if len(*req.Password) < 8 {
			writeAPIError(w, ErrCodeValidation, "password must be at least 8 characters")
			return
		}
		hash, err := bcryptHash(*req.Password)
		if err != nil {
			api.logger.Error("bcrypt hash failed", "error", err)
			writeAPIError(w, ErrCodeInternal, "internal error")
			return
		}
		upd.Password = storage.SetField(hash)
	}
	if req.FirstName != nil {
		upd.FirstName = storage.SetField(*req.FirstName)
	}
	if req.MiddleName.Set {
		upd.MiddleName = storage.SetField(req.MiddleName.Value)
	}
	if req.Surname != nil {
		upd.Surname = storage.SetField(*req.Surname)
	}
	if req.Age != nil {
		upd.Age = storage.SetField(*req.Age)
	}
	if req.Gender != nil {
		upd.Gender = storage.SetField(*req.Gender)
	}
	if req.ProfPictureID.Set {
		upd.ProfPictureID = storage.SetField(req.ProfPictureID.Value)
	}

	if err := api.store.UpdateUser(r.Context(), userID, upd); err != nil {
		api.writeStoreError(w, err, ErrCodeUserNotFound, "user")
		return
	}

	profile, err := api.store.GetUserProfile(r.Context(), userID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeUserNotFound, "user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]userItem{"user": toUserItem(profile)})
}

func (api *v1API) handleDeleteUser(w http.ResponseWriter, r *http.Request, userID int64) {
	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if currentUserID != userID {
		writeAPIError(w, ErrCodeNotParticipant, "cannot delete another user")
		return
	}

	if err := api.store.DeleteUser(r.Context(), userID); err != nil {
		api.writeStoreError(w, err, ErrCodeUserNotFound, "user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type feedResponse struct {
	Statuses []statusItem `json:"statuses"`
}

func (api *v1API) handleFriendFeed(w http.ResponseWriter, r *http.Request, userID int64) {
	limit := -1
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeAPIError(w, ErrCodeValidation, "invalid limit")
			return
		}
		limit = n
	}

	statuses, err := api.store.FriendFeedForUser(r.Context(), userID, limit)
	if err != nil {
		api.logger.Error("friend feed failed", "userID", userID, "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, feedResponse{Statuses: toStatusItems(statuses)})
}
