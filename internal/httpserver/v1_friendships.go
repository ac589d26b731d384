package httpserver

import (
	"net/http"
	"strings"
	"time"

	"friendsnet-backend/internal/ws"
)

type createFriendshipRequest struct {
	UserID int64 `json:"userId"`
}

func (api *v1API) handleFriendships(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
		return
	}

	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createFriendshipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIError(w, ErrCodeValidation, "invalid JSON body")
		return
	}
	if req.UserID <= 0 {
		writeAPIError(w, ErrCodeValidation, "userId is required")
		return
	}
	if req.UserID == currentUserID {
		writeAPIError(w, ErrCodeValidation, "cannot befriend yourself")
		return
	}

	friendshipID, err := api.store.CreateFriendship(r.Context(), currentUserID, req.UserID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeUserNotFound, "friendship")
		return
	}

	friendship, err := api.store.GetFriendship(r.Context(), friendshipID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "friendship")
		return
	}

	writeJSON(w, http.StatusOK, map[string]friendshipItem{"friendship": toFriendshipItem(friendship)})

	api.sendToUsers([]int64{req.UserID}, ws.Envelope{
		Type:    "friendship.requested",
		Payload: map[string]any{"friendship": toFriendshipItem(friendship)},
	})
}

func (api *v1API) handleFriendshipSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/friendships/")
	parts := splitPath(rest)
	if len(parts) == 0 || len(parts) > 2 {
		writeAPIError(w, ErrCodeNotFound, "not found")
		return
	}

	friendshipID, ok := parseID(parts[0])
	if !ok {
		writeAPIError(w, ErrCodeValidation, "invalid friendship id")
		return
	}

	if len(parts) == 2 {
		if parts[1] != "accept" || r.Method != http.MethodPost {
			writeAPIError(w, ErrCodeNotFound, "not found")
			return
		}
		api.handleAcceptFriendship(w, r, friendshipID)
		return
	}

	switch r.Method {
	case http.MethodGet:
		api.handleGetFriendship(w, r, friendshipID)
	case http.MethodDelete:
		api.handleDeleteFriendship(w, r, friendshipID)
	default:
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
	}
}

func (api *v1API) handleGetFriendship(w http.ResponseWriter, r *http.Request, friendshipID int64) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	friendship, err := api.store.GetFriendship(r.Context(), friendshipID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "friendship")
		return
	}
	writeJSON(w, http.StatusOK, map[string]friendshipItem{"friendship": toFriendshipItem(friendship)})
}

func (api *v1API) handleAcceptFriendship(w http.ResponseWriter, r *http.Request, friendshipID int64) {
	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}

	friendship, err := api.store.GetFriendship(r.Context(), friendshipID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "friendship")
		return
	}
	// Only the addressee accepts; the requester created the row.
	if friendship.User2ID != currentUserID {
		writeAPIError(w, ErrCodeNotParticipant, "only the requested user can accept")
		return
	}

	nowMs := time.Now().UnixMilli()
	if err := api.store.AcceptFriendship(r.Context(), friendshipID, nowMs); err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "friendship")
		return
	}

	friendship, err = api.store.GetFriendship(r.Context(), friendshipID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "friendship")
		return
	}

	writeJSON(w, http.StatusOK, map[string]friendshipItem{"friendship": toFriendshipItem(friendship)})

	api.sendToUsers([]int64{friendship.User1ID}, ws.Envelope{
		Type:    "friendship.accepted",
		Payload: map[string]any{"friendship": toFriendshipItem(friendship)},
	})
}

func (api *v1API) handleDeleteFriendship(w http.ResponseWriter, r *http.Request, friendshipID int64) {
	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}

	friendship, err := api.store.GetFriendship(r.Context(), friendshipID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "friendship")
		return
	}
	if friendship.User1ID != currentUserID && friendship.User2ID != currentUserID {
		writeAPIError(w, ErrCodeNotParticipant, "not a party to this friendship")
		return
	}

	if err := api.store.DeleteFriendship(r.Context(), friendshipID); err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "friendship")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
