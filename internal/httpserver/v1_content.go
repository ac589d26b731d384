package httpserver

import (
	"net/http"
	"strings"
)

func (api *v1API) handleComments(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/comments/")
	parts := splitPath(rest)
	if len(parts) != 1 {
		writeAPIError(w, ErrCodeNotFound, "not found")
		return
	}

	commentID, ok := parseID(parts[0])
	if !ok {
		writeAPIError(w, ErrCodeValidation, "invalid comment id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		comment, err := api.store.GetComment(r.Context(), commentID)
		if err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "comment")
			return
		}
		writeJSON(w, http.StatusOK, map[string]commentItem{"comment": toCommentItem(comment)})

	case http.MethodPut:
		currentUserID, ok := requireUser(w, r)
		if !ok {
			return
		}
		comment, err := api.store.GetComment(r.Context(), commentID)
		if err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "comment")
			return
		}
		if comment.UserID != currentUserID {
			writeAPIError(w, ErrCodeNotParticipant, "only the author can edit a comment")
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

		if err := api.store.UpdateCommentContent(r.Context(), commentID, req.Content); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "comment")
			return
		}
		comment.Content = req.Content
		writeJSON(w, http.StatusOK, map[string]commentItem{"comment": toCommentItem(comment)})

	case http.MethodDelete:
		currentUserID, ok := requireUser(w, r)
		if !ok {
			return
		}
		comment, err := api.store.GetComment(r.Context(), commentID)
		if err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "comment")
			return
		}
		if comment.UserID != currentUserID {
			writeAPIError(w, ErrCodeNotParticipant, "only the author can delete a comment")
			return
		}

		if err := api.store.DeleteComment(r.Context(), commentID); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "comment")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
	}
}

func (api *v1API) handleRates(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/rates/")
	parts := splitPath(rest)
	if len(parts) != 1 {
		writeAPIError(w, ErrCodeNotFound, "not found")
		return
	}

	rateID, ok := parseID(parts[0])
	if !ok {
		writeAPIError(w, ErrCodeValidation, "invalid rate id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		rate, err := api.store.GetRate(r.Context(), rateID)
		if err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "rate")
			return
		}
		writeJSON(w, http.StatusOK, map[string]rateItem{"rate": toRateItem(rate)})

	case http.MethodPut:
		currentUserID, ok := requireUser(w, r)
		if !ok {
			return
		}
		rate, err := api.store.GetRate(r.Context(), rateID)
		if err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "rate")
			return
		}
		if rate.UserID != currentUserID {
			writeAPIError(w, ErrCodeNotParticipant, "only the rater can change a rate")
			return
		}

		var req addRateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, ErrCodeValidation, "invalid JSON body")
			return
		}

		if err := api.store.UpdateRateValue(r.Context(), rateID, req.Rate); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "rate")
			return
		}
		rate.Rate = req.Rate
		writeJSON(w, http.StatusOK, map[string]rateItem{"rate": toRateItem(rate)})

	case http.MethodDelete:
		currentUserID, ok := requireUser(w, r)
		if !ok {
			return
		}
		rate, err := api.store.GetRate(r.Context(), rateID)
		if err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "rate")
			return
		}
		if rate.UserID != currentUserID {
			writeAPIError(w, ErrCodeNotParticipant, "only the rater can delete a rate")
			return
		}

		if err := api.store.DeleteRate(r.Context(), rateID); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "rate")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
	}
}
