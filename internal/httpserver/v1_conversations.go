package httpserver

import (
	"net/http"
	"strings"
	"time"

	"friendsnet-backend/internal/storage"
	"friendsnet-backend/internal/ws"
)

type createConversationRequest struct {
	UserID int64 `json:"userId"`
}

func (api *v1API) handleConversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.handleListConversations(w, r)
	case http.MethodPost:
		api.handleCreateConversation(w, r)
	default:
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
	}
}

func (api *v1API) handleListConversations(w http.ResponseWriter, r *http.Request) {
	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}

	conversations, err := api.store.ListConversationsForUser(r.Context(), currentUserID)
	if err != nil {
		api.logger.Error("list conversations failed", "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}

	items := make([]conversationItem, 0, len(conversations))
	for _, c := range conversations {
		items = append(items, toConversationItem(c))
	}
	writeJSON(w, http.StatusOK, map[string][]conversationItem{"conversations": items})
}

func (api *v1API) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIError(w, ErrCodeValidation, "invalid JSON body")
		return
	}
	if req.UserID <= 0 {
		writeAPIError(w, ErrCodeValidation, "userId is required")
		return
	}
	if req.UserID == currentUserID {
		writeAPIError(w, ErrCodeValidation, "cannot start a conversation with yourself")
		return
	}

	nowMs := time.Now().UnixMilli()
	conversationID, err := api.store.CreateConversation(r.Context(), currentUserID, req.UserID, nowMs)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeUserNotFound, "conversation")
		return
	}

	conversation, err := api.store.GetConversation(r.Context(), conversationID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]conversationItem{"conversation": toConversationItem(conversation)})
}

func (api *v1API) handleConversationSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/conversations/")
	parts := splitPath(rest)
	if len(parts) == 0 || len(parts) > 2 {
		writeAPIError(w, ErrCodeNotFound, "not found")
		return
	}

	conversationID, ok := parseID(parts[0])
	if !ok {
		writeAPIError(w, ErrCodeValidation, "invalid conversation id")
		return
	}

	currentUserID, ok := requireUser(w, r)
	if !ok {
		return
	}

	conversation, err := api.store.GetConversation(r.Context(), conversationID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "conversation")
		return
	}
	if conversation.User1ID != currentUserID && conversation.User2ID != currentUserID {
		writeAPIError(w, ErrCodeNotParticipant, "not a participant in this conversation")
		return
	}

	if len(parts) == 2 {
		if parts[1] != "messages" {
			writeAPIError(w, ErrCodeNotFound, "not found")
			return
		}
		api.handleConversationMessages(w, r, conversation)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]conversationItem{"conversation": toConversationItem(conversation)})
	case http.MethodDelete:
		if err := api.store.DeleteConversation(r.Context(), conversationID); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "conversation")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
	}
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (api *v1API) handleConversationMessages(w http.ResponseWriter, r *http.Request, conversation storage.ConversationRow) {
	switch r.Method {
	case http.MethodGet:
		messages, err := api.store.ListMessagesForConversation(r.Context(), conversation.ConversationID)
		if err != nil {
			api.logger.Error("list messages failed", "error", err)
			writeAPIError(w, ErrCodeInternal, "internal error")
			return
		}
		items := make([]messageItem, 0, len(messages))
		for _, m := range messages {
			items = append(items, toMessageItem(m))
		}
		writeJSON(w, http.StatusOK, map[string][]messageItem{"messages": items})

	case http.MethodPost:
		currentUserID, ok := requireUser(w, r)
		if !ok {
			return
		}

		var req sendMessageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, ErrCodeValidation, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeAPIError(w, ErrCodeValidation, "content is required")
			return
		}

		nowMs := time.Now().UnixMilli()
		messageID, err := api.store.CreateMessage(r.Context(), conversation.ConversationID, currentUserID, req.Content, nowMs)
		if err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "message")
			return
		}

		item := messageItem{
			ID:             messageID,
			ConversationID: conversation.ConversationID,
			SenderID:       currentUserID,
			Content:        req.Content,
			TimeSentMs:     nowMs,
		}
		writeJSON(w, http.StatusOK, map[string]messageItem{"message": item})

		api.sendToUsers([]int64{conversation.User1ID, conversation.User2ID}, ws.Envelope{
			Type:           "message.created",
			ConversationID: conversation.ConversationID,
			Payload:        map[string]any{"message": item},
		})

	default:
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
	}
}
