package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"friendsnet-backend/internal/storage"
	"friendsnet-backend/internal/ws"
)

type createGroupRequest struct {
	Name          string  `json:"name"`
	ProfPictureID *int64  `json:"profPictureId,omitempty"`
	PrivacyLevel  int64   `json:"privacyLevel"`
	Description   *string `json:"description,omitempty"`
}

func (api *v1API) handleGroups(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.handleSearchGroups(w, r)
	case http.MethodPost:
		api.handleCreateGroup(w, r)
	default:
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
	}
}

func (api *v1API) handleSearchGroups(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeAPIError(w, ErrCodeValidation, "name is required")
		return
	}

	groups, err := api.store.SearchGroups(r.Context(), name)
	if err != nil {
		api.logger.Error("search groups failed", "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}

	items := make([]groupItem, 0, len(groups))
	for _, g := range groups {
		// Secret groups never show up in search.
		if g.PrivacyLevel == storage.PrivacyLevelSecret {
			continue
		}
		items = append(items, toGroupItem(g))
	}
	writeJSON(w, http.StatusOK, map[string][]groupItem{"groups": items})
}

func (api *v1API) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIError(w, ErrCodeValidation, "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeAPIError(w, ErrCodeValidation, "name is required")
		return
	}

	groupID, err := api.store.CreateGroup(r.Context(), currentUserID, req.Name, req.ProfPictureID, req.PrivacyLevel, req.Description)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "group")
		return
	}

	group, err := api.store.GetGroup(r.Context(), groupID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "group")
		return
	}
	writeJSON(w, http.StatusOK, map[string]groupItem{"group": toGroupItem(group)})
}

func (api *v1API) handleGroupSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/groups/")
	parts := splitPath(rest)
	if len(parts) == 0 || len(parts) > 4 {
		writeAPIError(w, ErrCodeNotFound, "not found")
		return
	}

	groupID, ok := parseID(parts[0])
	if !ok {
		writeAPIError(w, ErrCodeValidation, "invalid group id")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			api.handleGetGroup(w, r, groupID)
		case http.MethodPut:
			api.handleUpdateGroup(w, r, groupID)
		case http.MethodDelete:
			api.handleDeleteGroup(w, r, groupID)
		default:
			writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
		}
		return
	}

	if _, err := api.store.GetGroup(r.Context(), groupID); err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "group")
		return
	}

	switch parts[1] {
	case "members":
		api.handleGroupMembers(w, r, groupID, parts)
	case "requests":
		api.handleGroupRequests(w, r, groupID, parts)
	case "statuses":
		if len(parts) != 2 || r.Method != http.MethodGet {
			writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
			return
		}
		statuses, err := api.store.ListStatusesForGroup(r.Context(), groupID)
		if err != nil {
			api.logger.Error("list group statuses failed", "error", err)
			writeAPIError(w, ErrCodeInternal, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string][]statusItem{"statuses": toStatusItems(statuses)})
	default:
		writeAPIError(w, ErrCodeNotFound, "not found")
	}
}

func (api *v1API) handleGetGroup(w http.ResponseWriter, r *http.Request, groupID int64) {
	group, err := api.store.GetGroup(r.Context(), groupID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "group")
		return
	}
	writeJSON(w, http.StatusOK, map[string]groupItem{"group": toGroupItem(group)})
}

type updateGroupRequest struct {
	Name          *string               `json:"name,omitempty"`
	PrivacyLevel  *int64                `json:"privacyLevel,omitempty"`
	ProfPictureID jsonOptional[*int64]  `json:"profPictureId"`
	Description   jsonOptional[*string] `json:"description"`
}

func (api *v1API) handleUpdateGroup(w http.ResponseWriter, r *http.Request, groupID int64) {
	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !api.requireGroupAdmin(w, r, groupID, currentUserID) {
		return
	}

	var req updateGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIError(w, ErrCodeValidation, "invalid JSON body")
		return
	}

	var upd storage.GroupUpdate
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeAPIError(w, ErrCodeValidation, "name must not be empty")
			return
		}
		upd.Name = storage.SetField(name)
	}
	if req.PrivacyLevel != nil {
		upd.PrivacyLevel = storage.SetField(*req.PrivacyLevel)
	}
	if req.ProfPictureID.Set {
		upd.ProfPictureID = storage.SetField(req.ProfPictureID.Value)
	}
	if req.Description.Set {
		upd.Description = storage.SetField(req.Description.Value)
	}

	if err := api.store.UpdateGroup(r.Context(), groupID, upd); err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "group")
		return
	}

	group, err := api.store.GetGroup(r.Context(), groupID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "group")
		return
	}
	writeJSON(w, http.StatusOK, map[string]groupItem{"group": toGroupItem(group)})
}

func (api *v1API) handleDeleteGroup(w http.ResponseWriter, r *http.Request, groupID int64) {
	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !api.requireGroupAdmin(w, r, groupID, currentUserID) {
		return
	}

	if err := api.store.DeleteGroup(r.Context(), groupID); err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "group")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (api *v1API) requireGroupAdmin(w http.ResponseWriter, r *http.Request, groupID, userID int64) bool {
	membership, err := api.store.GetMembership(r.Context(), groupID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeAPIError(w, ErrCodeNotParticipant, "group administrator required")
			return false
		}
		api.logger.Error("get membership failed", "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return false
	}
	if membership.Administrator != storage.MemberRoleAdministrator {
		writeAPIError(w, ErrCodeNotParticipant, "group administrator required")
		return false
	}
	return true
}

type addMemberRequest struct {
	UserID int64 `json:"userId"`
}

type updateMemberRequest struct {
	Administrator int64 `json:"administrator"`
}

func (api *v1API) handleGroupMembers(w http.ResponseWriter, r *http.Request, groupID int64, parts []string) {
	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		members, err := api.store.ListMembersForGroup(r.Context(), groupID)
		if err != nil {
			api.logger.Error("list members failed", "error", err)
			writeAPIError(w, ErrCodeInternal, "internal error")
			return
		}
		items := make([]membershipItem, 0, len(members))
		for _, m := range members {
			items = append(items, toMembershipItem(m))
		}
		writeJSON(w, http.StatusOK, map[string][]membershipItem{"members": items})

	case len(parts) == 2 && r.Method == http.MethodPost:
		currentUserID, ok := requireUser(w, r)
		if !ok {
			return
		}

		var req addMemberRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, ErrCodeValidation, "invalid JSON body")
			return
		}
		if req.UserID <= 0 {
			writeAPIError(w, ErrCodeValidation, "userId is required")
			return
		}

		// Joining a public group yourself is open; enrolling someone else
		// takes an administrator.
		group, err := api.store.GetGroup(r.Context(), groupID)
		if err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "group")
			return
		}
		selfJoin := req.UserID == currentUserID && group.PrivacyLevel == storage.PrivacyLevelPublic
		if !selfJoin && !api.requireGroupAdmin(w, r, groupID, currentUserID) {
			return
		}

		if err := api.store.AddMemberToGroup(r.Context(), groupID, req.UserID); err != nil {
			api.writeStoreError(w, err, ErrCodeUserNotFound, "membership")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	case len(parts) == 3 && r.Method == http.MethodPut:
		currentUserID, ok := requireUser(w, r)
		if !ok {
			return
		}
		if !api.requireGroupAdmin(w, r, groupID, currentUserID) {
			return
		}
		userID, ok := parseID(parts[2])
		if !ok {
			writeAPIError(w, ErrCodeValidation, "invalid user id")
			return
		}

		var req updateMemberRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, ErrCodeValidation, "invalid JSON body")
			return
		}

		if err := api.store.UpdateMemberRole(r.Context(), groupID, userID, req.Administrator); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "membership")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	case len(parts) == 3 && r.Method == http.MethodDelete:
		currentUserID, ok := requireUser(w, r)
		if !ok {
			return
		}
		userID, ok := parseID(parts[2])
		if !ok {
			writeAPIError(w, ErrCodeValidation, "invalid user id")
			return
		}
		// Members can leave on their own; removing others takes an admin.
		if userID != currentUserID && !api.requireGroupAdmin(w, r, groupID, currentUserID) {
			return
		}

		if err := api.store.RemoveMemberFromGroup(r.Context(), groupID, userID); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "membership")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
	}
}

func (api *v1API) handleGroupRequests(w http.ResponseWriter, r *http.Request, groupID int64, parts []string) {
	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		currentUserID, ok := requireUser(w, r)
		if !ok {
			return
		}
		if !api.requireGroupAdmin(w, r, groupID, currentUserID) {
			return
		}

		requests, err := api.store.ListRequestsForGroup(r.Context(), groupID)
		if err != nil {
			api.logger.Error("list group requests failed", "error", err)
			writeAPIError(w, ErrCodeInternal, "internal error")
			return
		}
		userIDs := make([]int64, 0, len(requests))
		for _, req := range requests {
			userIDs = append(userIDs, req.UserID)
		}
		writeJSON(w, http.StatusOK, map[string][]int64{"userIds": userIDs})

	case len(parts) == 2 && r.Method == http.MethodPost:
		currentUserID, ok := requireUser(w, r)
		if !ok {
			return
		}
		if err := api.store.RequestMembership(r.Context(), groupID, currentUserID); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "request")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	case len(parts) == 4 && parts[3] == "accept" && r.Method == http.MethodPost:
		currentUserID, ok := requireUser(w, r)
		if !ok {
			return
		}
		if !api.requireGroupAdmin(w, r, groupID, currentUserID) {
			return
		}
		userID, ok := parseID(parts[2])
		if !ok {
			writeAPIError(w, ErrCodeValidation, "invalid user id")
			return
		}

		if err := api.store.AcceptGroupRequest(r.Context(), groupID, userID); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "request")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

		api.sendToUsers([]int64{userID}, ws.Envelope{
			Type:    "group.request.accepted",
			Payload: map[string]any{"groupId": groupID},
		})

	case len(parts) == 3 && r.Method == http.MethodDelete:
		currentUserID, ok := requireUser(w, r)
		if !ok {
			return
		}
		userID, ok := parseID(parts[2])
		if !ok {
			writeAPIError(w, ErrCodeValidation, "invalid user id")
			return
		}
		// A user may withdraw their own request; declining others takes an admin.
		if userID != currentUserID && !api.requireGroupAdmin(w, r, groupID, currentUserID) {
			return
		}

		if err := api.store.DeclineGroupRequest(r.Context(), groupID, userID); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "request")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
	}
}
