package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"friendsnet-backend/internal/storage"
	"friendsnet-backend/internal/ws"
)

type v1API struct {
	logger    *slog.Logger
	store     Store
	wsManager *ws.Manager
	uploadDir string
}

func newV1API(logger *slog.Logger, store Store, wsManager *ws.Manager, uploadDir string) *v1API {
	return &v1API{
		logger:    logger.With("component", "v1"),
		store:     store,
		wsManager: wsManager,
		uploadDir: uploadDir,
	}
}

type apiErrorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeAPIError(w http.ResponseWriter, code ErrorCode, message string) {
	writeJSON(w, httpStatusForCode(code), apiErrorEnvelope{
		Error: apiError{
			Code:    string(code),
			Message: message,
		},
	})
}

// writeStoreError maps the storage sentinels onto API error codes, using
// notFoundCode so callers can distinguish "user not found" from a generic 404.
func (api *v1API) writeStoreError(w http.ResponseWriter, err error, notFoundCode ErrorCode, what string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeAPIError(w, notFoundCode, what+" not found")
	case errors.Is(err, storage.ErrEmailExists):
		writeAPIError(w, ErrCodeEmailExists, "email already registered")
	case errors.Is(err, storage.ErrAlreadyExists):
		writeAPIError(w, ErrCodeAlreadyExists, what+" already exists")
	case errors.Is(err, storage.ErrInvalidValue):
		writeAPIError(w, ErrCodeValidation, "invalid "+what)
	case errors.Is(err, storage.ErrNotParticipant):
		writeAPIError(w, ErrCodeNotParticipant, "not a participant")
	case errors.Is(err, storage.ErrRequestNotAllowed):
		writeAPIError(w, ErrCodeRequestNotAllowed, "group does not accept join requests")
	case errors.Is(err, storage.ErrNoChange):
		writeAPIError(w, ErrCodeNoChange, what+" unchanged")
	default:
		api.logger.Error("store call failed", "what", what, "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("unexpected extra JSON input")
	}
	return nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		writeAPIError(w, ErrCodeTokenInvalid, "authentication required")
		return 0, false
	}
	return userID, true
}

// Response item shapes shared across handlers.

type userItem struct {
	ID            int64   `json:"id"`
	FirstName     string  `json:"firstName"`
	MiddleName    *string `json:"middleName,omitempty"`
	Surname       string  `json:"surname"`
	ProfPictureID *int64  `json:"profPictureId,omitempty"`
	Age           int64   `json:"age"`
	Gender        int64   `json:"gender"`
}

func toUserItem(p storage.UserProfileRow) userItem {
	return userItem{
		ID:            p.UserID,
		FirstName:     p.FirstName,
		MiddleName:    p.MiddleName,
		Surname:       p.Surname,
		ProfPictureID: p.ProfPictureID,
		Age:           p.Age,
		Gender:        p.Gender,
	}
}

type friendshipItem struct {
	ID      int64  `json:"id"`
	User1ID int64  `json:"user1Id"`
	User2ID int64  `json:"user2Id"`
	Status  int64  `json:"status"`
	StartMs *int64 `json:"startMs,omitempty"`
}

func toFriendshipItem(f storage.FriendshipRow) friendshipItem {
	return friendshipItem{
		ID:      f.FriendshipID,
		User1ID: f.User1ID,
		User2ID: f.User2ID,
		Status:  f.Status,
		StartMs: f.StartMs,
	}
}

type statusItem struct {
	ID             int64  `json:"id"`
	CreatorID      int64  `json:"creatorId"`
	Content        string `json:"content"`
	CreationTimeMs int64  `json:"creationTimeMs"`
}

func toStatusItem(s storage.StatusRow) statusItem {
	return statusItem{
		ID:             s.StatusID,
		CreatorID:      s.CreatorID,
		Content:        s.Content,
		CreationTimeMs: s.CreationTimeMs,
	}
}

func toStatusItems(statuses []storage.StatusRow) []statusItem {
	items := make([]statusItem, 0, len(statuses))
	for _, s := range statuses {
		items = append(items, toStatusItem(s))
	}
	return items
}

type commentItem struct {
	ID             int64  `json:"id"`
	StatusID       int64  `json:"statusId"`
	UserID         int64  `json:"userId"`
	Content        string `json:"content"`
	CreationTimeMs int64  `json:"creationTimeMs"`
}

func toCommentItem(c storage.CommentRow) commentItem {
	return commentItem{
		ID:             c.CommentID,
		StatusID:       c.StatusID,
		UserID:         c.UserID,
		Content:        c.Content,
		CreationTimeMs: c.CreationTimeMs,
	}
}

type rateItem struct {
	ID       int64 `json:"id"`
	StatusID int64 `json:"statusId"`
	UserID   int64 `json:"userId"`
	Rate     int64 `json:"rate"`
}

func toRateItem(r storage.RateRow) rateItem {
	return rateItem{
		ID:       r.RateID,
		StatusID: r.StatusID,
		UserID:   r.UserID,
		Rate:     r.Rate,
	}
}

type mediaItem struct {
	ID          int64   `json:"id"`
	Type        int64   `json:"type"`
	URL         string  `json:"url"`
	Description *string `json:"description,omitempty"`
}

func toMediaItem(m storage.MediaItemRow) mediaItem {
	return mediaItem{
		ID:          m.MediaItemID,
		Type:        m.Type,
		URL:         m.URL,
		Description: m.Description,
	}
}

type groupItem struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	ProfPictureID *int64  `json:"profPictureId,omitempty"`
	PrivacyLevel  int64   `json:"privacyLevel"`
	Description   *string `json:"description,omitempty"`
}

func toGroupItem(g storage.GroupRow) groupItem {
	return groupItem{
		ID:            g.GroupID,
		Name:          g.Name,
		ProfPictureID: g.ProfPictureID,
		PrivacyLevel:  g.PrivacyLevel,
		Description:   g.Description,
	}
}

type membershipItem struct {
	GroupID       int64 `json:"groupId"`
	UserID        int64 `json:"userId"`
	Administrator int64 `json:"administrator"`
}

func toMembershipItem(m storage.MembershipRow) membershipItem {
	return membershipItem{
		GroupID:       m.GroupID,
		UserID:        m.UserID,
		Administrator: m.Administrator,
	}
}

type conversationItem struct {
	ID                int64 `json:"id"`
	User1ID           int64 `json:"user1Id"`
	User2ID           int64 `json:"user2Id"`
	TimeLastMessageMs int64 `json:"timeLastMessageMs"`
}

func toConversationItem(c storage.ConversationRow) conversationItem {
	return conversationItem{
		ID:                c.ConversationID,
		User1ID:           c.User1ID,
		User2ID:           c.User2ID,
		TimeLastMessageMs: c.TimeLastMessageMs,
	}
}

type messageItem struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversationId"`
	SenderID       int64  `json:"senderId"`
	Content        string `json:"content"`
	TimeSentMs     int64  `json:"timeSentMs"`
}

func toMessageItem(m storage.MessageRow) messageItem {
	return messageItem{
		ID:             m.MessageID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		TimeSentMs:     m.TimeSentMs,
	}
}

func (api *v1API) broadcast(env ws.Envelope) {
	if api.wsManager == nil {
		return
	}
	api.wsManager.Broadcast(env)
}

func (api *v1API) sendToUsers(userIDs []int64, env ws.Envelope) {
	if api.wsManager == nil {
		return
	}
	api.wsManager.SendToUsers(userIDs, env)
}
