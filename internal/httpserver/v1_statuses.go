package httpserver

import (
	"net/http"
	"strings"
	"time"

	"friendsnet-backend/internal/ws"
)

type createStatusRequest struct {
	Content string `json:"content"`
	GroupID *int64 `json:"groupId,omitempty"`
}

func (api *v1API) handleStatuses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
		return
	}

	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIError(w, ErrCodeValidation, "invalid JSON body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeAPIError(w, ErrCodeValidation, "content is required")
		return
	}

	nowMs := time.Now().UnixMilli()
	statusID, err := api.store.CreateStatus(r.Context(), currentUserID, req.Content, req.GroupID, nowMs)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "status")
		return
	}

	status, err := api.store.GetStatus(r.Context(), statusID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]statusItem{"status": toStatusItem(status)})

	// Group statuses stay inside the group; everything else feeds the live
	// stream so clients can refresh without polling.
	if req.GroupID == nil {
		api.broadcast(ws.Envelope{
			Type:    "status.created",
			Payload: map[string]any{"status": toStatusItem(status)},
		})
	}
}

func (api *v1API) handleStatusSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/statuses/")
	parts := splitPath(rest)
	if len(parts) == 0 || len(parts) > 3 {
		writeAPIError(w, ErrCodeNotFound, "not found")
		return
	}

	statusID, ok := parseID(parts[0])
	if !ok {
		writeAPIError(w, ErrCodeValidation, "invalid status id")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			api.handleGetStatus(w, r, statusID)
		case http.MethodPut:
			api.handleUpdateStatus(w, r, statusID)
		case http.MethodDelete:
			api.handleDeleteStatus(w, r, statusID)
		default:
			writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
		}
		return
	}

	// Subcollections 404 when the status itself is gone.
	if _, err := api.store.GetStatus(r.Context(), statusID); err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "status")
		return
	}

	switch parts[1] {
	case "comments":
		if len(parts) != 2 {
			writeAPIError(w, ErrCodeNotFound, "not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			api.handleListComments(w, r, statusID)
		case http.MethodPost:
			api.handleAddComment(w, r, statusID)
		default:
			writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
		}
	case "rates":
		if len(parts) != 2 {
			writeAPIError(w, ErrCodeNotFound, "not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			api.handleListRates(w, r, statusID)
		case http.MethodPost:
			api.handleAddRate(w, r, statusID)
		default:
			writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
		}
	case "media":
		api.handleStatusMedia(w, r, statusID, parts)
	case "tags":
		api.handleStatusTags(w, r, statusID, parts)
	default:
		writeAPIError(w, ErrCodeNotFound, "not found")
	}
}

func (api *v1API) handleGetStatus(w http.ResponseWriter, r *http.Request, statusID int64) {
	status, err := api.store.GetStatus(r.Context(), statusID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]statusItem{"status": toStatusItem(status)})
}

type updateContentRequest struct {
	Content string `json:"content"`
}

func (api *v1API) handleUpdateStatus(w http.ResponseWriter, r *http.Request, statusID int64) {
	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}

	status, err := api.store.GetStatus(r.Context(), statusID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "status")
		return
	}
	if status.CreatorID != currentUserID {
		writeAPIError(w, ErrCodeNotParticipant, "only the creator can edit a status")
		return
	}

	var req updateContentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIError(w, ErrCodeValidation, "invalid JSON body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeAPIError(w, ErrCodeValidation, "content is required")
		return
	}

	if err := api.store.UpdateStatusContent(r.Context(), statusID, req.Content); err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "status")
		return
	}
	status.Content = req.Content
	writeJSON(w, http.StatusOK, map[string]statusItem{"status": toStatusItem(status)})
}

func (api *v1API) handleDeleteStatus(w http.ResponseWriter, r *http.Request, statusID int64) {
	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}

	status, err := api.store.GetStatus(r.Context(), statusID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "status")
		return
	}
	if status.CreatorID != currentUserID {
		writeAPIError(w, ErrCodeNotParticipant, "only the creator can delete a status")
		return
	}

	if err := api.store.DeleteStatus(r.Context(), statusID); err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (api *v1API) handleListComments(w http.ResponseWriter, r *http.Request, statusID int64) {
	comments, err := api.store.ListCommentsForStatus(r.Context(), statusID)
	if err != nil {
		api.logger.Error("list comments failed", "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}
	items := make([]commentItem, 0, len(comments))
	for _, c := range comments {
		items = append(items, toCommentItem(c))
	}
	writeJSON(w, http.StatusOK, map[string][]commentItem{"comments": items})
}

func (api *v1API) handleAddComment(w http.ResponseWriter, r *http.Request, statusID int64) {
	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req updateContentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIError(w, ErrCodeValidation, "invalid JSON body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeAPIError(w, ErrCodeValidation, "content is required")
		return
	}

	nowMs := time.Now().UnixMilli()
	commentID, err := api.store.AddCommentToStatus(r.Context(), statusID, currentUserID, req.Content, nowMs)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "comment")
		return
	}

	comment, err := api.store.GetComment(r.Context(), commentID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "comment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]commentItem{"comment": toCommentItem(comment)})
}

func (api *v1API) handleListRates(w http.ResponseWriter, r *http.Request, statusID int64) {
	rates, err := api.store.ListRatesForStatus(r.Context(), statusID)
	if err != nil {
		api.logger.Error("list rates failed", "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}
	items := make([]rateItem, 0, len(rates))
	for _, rt := range rates {
		items = append(items, toRateItem(rt))
	}
	writeJSON(w, http.StatusOK, map[string][]rateItem{"rates": items})
}

type addRateRequest struct {
	Rate int64 `json:"rate"`
}

func (api *v1API) handleAddRate(w http.ResponseWriter, r *http.Request, statusID int64) {
	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req addRateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIError(w, ErrCodeValidation, "invalid JSON body")
		return
	}

	rateID, err := api.store.AddRateToStatus(r.Context(), statusID, currentUserID, req.Rate)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "rate")
		return
	}

	rate, err := api.store.GetRate(r.Context(), rateID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "rate")
		return
	}
	writeJSON(w, http.StatusOK, map[string]rateItem{"rate": toRateItem(rate)})
}

type attachMediaRequest struct {
	MediaID int64 `json:"mediaId"`
}

func (api *v1API) handleStatusMedia(w http.ResponseWriter, r *http.Request, statusID int64, parts []string) {
	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		items, err := api.store.ListMediaForStatus(r.Context(), statusID)
		if err != nil {
			api.logger.Error("list status media failed", "error", err)
			writeAPIError(w, ErrCodeInternal, "internal error")
			return
		}
		out := make([]mediaItem, 0, len(items))
		for _, m := range items {
			out = append(out, toMediaItem(m))
		}
		writeJSON(w, http.StatusOK, map[string][]mediaItem{"media": out})

	case len(parts) == 2 && r.Method == http.MethodPost:
		if _, ok := requireUser(w, r); !ok {
			return
		}
		var req attachMediaRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, ErrCodeValidation, "invalid JSON body")
			return
		}
		if req.MediaID <= 0 {
			writeAPIError(w, ErrCodeValidation, "mediaId is required")
			return
		}
		if err := api.store.AttachMediaToStatus(r.Context(), statusID, req.MediaID); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "status media")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	case len(parts) == 3 && r.Method == http.MethodDelete:
		if _, ok := requireUser(w, r); !ok {
			return
		}
		mediaID, ok := parseID(parts[2])
		if !ok {
			writeAPIError(w, ErrCodeValidation, "invalid media id")
			return
		}
		if err := api.store.DetachMediaFromStatus(r.Context(), statusID, mediaID); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "status media")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
	}
}

type tagUserRequest struct {
	UserID int64 `json:"userId"`
}

func (api *v1API) handleStatusTags(w http.ResponseWriter, r *http.Request, statusID int64, parts []string) {
	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		profiles, err := api.store.ListTaggedUsersForStatus(r.Context(), statusID)
		if err != nil {
			api.logger.Error("list tagged users failed", "error", err)
			writeAPIError(w, ErrCodeInternal, "internal error")
			return
		}
		items := make([]userItem, 0, len(profiles))
		for _, p := range profiles {
			items = append(items, toUserItem(p))
		}
		writeJSON(w, http.StatusOK, map[string][]userItem{"users": items})

	case len(parts) == 2 && r.Method == http.MethodPost:
		if _, ok := requireUser(w, r); !ok {
			return
		}
		var req tagUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, ErrCodeValidation, "invalid JSON body")
			return
		}
		if req.UserID <= 0 {
			writeAPIError(w, ErrCodeValidation, "userId is required")
			return
		}
		if err := api.store.TagUserInStatus(r.Context(), statusID, req.UserID); err != nil {
			api.writeStoreError(w, err, ErrCodeUserNotFound, "tag")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	case len(parts) == 3 && r.Method == http.MethodDelete:
		if _, ok := requireUser(w, r); !ok {
			return
		}
		userID, ok := parseID(parts[2])
		if !ok {
			writeAPIError(w, ErrCodeValidation, "invalid user id")
			return
		}
		if err := api.store.RemoveTag(r.Context(), statusID, userID); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "tag")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
	}
}
