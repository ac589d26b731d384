package httpserver

import (
	"context"
	"net/http"

	"log/slog"

	"friendsnet-backend/internal/storage"
	"friendsnet-backend/internal/ws"
)

type Store interface {
	Ready(ctx context.Context) error

	CreateUser(ctx context.Context, in storage.NewUser, nowMs int64) (int64, error)
	GetUserCredentialsByEmail(ctx context.Context, email string) (storage.UserCredentialsRow, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	GetUserProfile(ctx context.Context, userID int64) (storage.UserProfileRow, error)
	SearchUsers(ctx context.Context, firstName, surname string) ([]storage.UserProfileRow, error)
	UpdateUser(ctx context.Context, userID int64, upd storage.UserUpdate) error
	DeleteUser(ctx context.Context, userID int64) error

	CreateAuthToken(ctx context.Context, userID, nowMs, expiresAtMs int64) (storage.AuthTokenRow, error)
	ValidateToken(ctx context.Context, token string, nowMs int64) (storage.AuthTokenRow, error)
	DeleteToken(ctx context.Context, token string) error

	CreateFriendship(ctx context.Context, user1ID, user2ID int64) (int64, error)
	GetFriendship(ctx context.Context, friendshipID int64) (storage.FriendshipRow, error)
	ListFriendshipsForUser(ctx context.Context, userID int64) ([]storage.FriendshipRow, error)
	AcceptFriendship(ctx context.Context, friendshipID, nowMs int64) error
	DeleteFriendship(ctx context.Context, friendshipID int64) error

	CreateStatus(ctx context.Context, creatorID int64, content string, groupID *int64, nowMs int64) (int64, error)
	GetStatus(ctx context.Context, statusID int64) (storage.StatusRow, error)
	ListStatusesForUser(ctx context.Context, userID int64) ([]storage.StatusRow, error)
	ListStatusesForGroup(ctx context.Context, groupID int64) ([]storage.StatusRow, error)
	FriendFeedForUser(ctx context.Context, userID int64, limit int) ([]storage.StatusRow, error)
	UpdateStatusContent(ctx context.Context, statusID int64, content string) error
	DeleteStatus(ctx context.Context, statusID int64) error

	AddCommentToStatus(ctx context.Context, statusID, userID int64, content string, nowMs int64) (int64, error)
	GetComment(ctx context.Context, commentID int64) (storage.CommentRow, error)
	ListCommentsForStatus(ctx context.Context, statusID int64) ([]storage.CommentRow, error)
	ListCommentsForUser(ctx context.Context, userID int64) ([]storage.CommentRow, error)
	UpdateCommentContent(ctx context.Context, commentID int64, content string) error
	DeleteComment(ctx context.Context, commentID int64) error

	AddRateToStatus(ctx context.Context, statusID, userID, rate int64) (int64, error)
	GetRate(ctx context.Context, rateID int64) (storage.RateRow, error)
	ListRatesForStatus(ctx context.Context, statusID int64) ([]storage.RateRow, error)
	ListRatesForUser(ctx context.Context, userID int64) ([]storage.RateRow, error)
	UpdateRateValue(ctx context.Context, rateID, rate int64) error
	DeleteRate(ctx context.Context, rateID int64) error

	CreateMedia(ctx context.Context, mediaType int64, url string, description *string) (int64, error)
	GetMediaItem(ctx context.Context, mediaID int64) (storage.MediaItemRow, error)
	UpdateMediaDescription(ctx context.Context, mediaID int64, description *string) error
	DeleteMediaItem(ctx context.Context, mediaID int64) error
	AttachMediaToStatus(ctx context.Context, statusID, mediaID int64) error
	ListMediaForStatus(ctx context.Context, statusID int64) ([]storage.MediaItemRow, error)
	DetachMediaFromStatus(ctx context.Context, statusID, mediaID int64) error

	TagUserInStatus(ctx context.Context, statusID, userID int64) error
	ListTaggedUsersForStatus(ctx context.Context, statusID int64) ([]storage.UserProfileRow, error)
	ListTaggedStatusesForUser(ctx context.Context, userID int64) ([]storage.StatusRow, error)
	RemoveTag(ctx context.Context, statusID, userID int64) error

	CreateGroup(ctx context.Context, creatorID int64, name string, profPictureID *int64, privacyLevel int64, description *string) (int64, error)
	GetGroup(ctx context.Context, groupID int64) (storage.GroupRow, error)
	SearchGroups(ctx context.Context, name string) ([]storage.GroupRow, error)
	UpdateGroup(ctx context.Context, groupID int64, upd storage.GroupUpdate) error
	DeleteGroup(ctx context.Context, groupID int64) error

	AddMemberToGroup(ctx context.Context, groupID, userID int64) error
	GetMembership(ctx context.Context, groupID, userID int64) (storage.MembershipRow, error)
	ListMembersForGroup(ctx context.Context, groupID int64) ([]storage.MembershipRow, error)
	ListMembershipsForUser(ctx context.Context, userID int64) ([]storage.MembershipRow, error)
	UpdateMemberRole(ctx context.Context, groupID, userID, role int64) error
	RemoveMemberFromGroup(ctx context.Context, groupID, userID int64) error

	RequestMembership(ctx context.Context, groupID, userID int64) error
	ListRequestsForGroup(ctx context.Context, groupID int64) ([]storage.GroupRequestRow, error)
	AcceptGroupRequest(ctx context.Context, groupID, userID int64) error
	DeclineGroupRequest(ctx context.Context, groupID, userID int64) error

	CreateConversation(ctx context.Context, user1ID, user2ID, nowMs int64) (int64, error)
	GetConversation(ctx context.Context, conversationID int64) (storage.ConversationRow, error)
	ListConversationsForUser(ctx context.Context, userID int64) ([]storage.ConversationRow, error)
	DeleteConversation(ctx context.Context, conversationID int64) error

	CreateMessage(ctx context.Context, conversationID, senderID int64, content string, nowMs int64) (int64, error)
	ListMessagesForConversation(ctx context.Context, conversationID int64) ([]storage.MessageRow, error)
}

func NewHandler(logger *slog.Logger, store Store, wsManager *ws.Manager, uploadDir string) http.Handler {
	mux := http.NewServeMux()
	api := newV1API(logger, store, wsManager, uploadDir)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := store.Ready(r.Context()); err != nil {
			logger.Warn("ready check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.Handle("/v1/ws", wsManager.Handler())
	mux.HandleFunc("/v1/auth/", api.handleAuth)
	mux.HandleFunc("/v1/users", api.handleUsers)
	mux.HandleFunc("/v1/users/", api.handleUserSubroutes)
	mux.HandleFunc("/v1/friendships", api.handleFriendships)
	mux.HandleFunc("/v1/friendships/", api.handleFriendshipSubroutes)
	mux.HandleFunc("/v1/statuses", api.handleStatuses)
	mux.HandleFunc("/v1/statuses/", api.handleStatusSubroutes)
	mux.HandleFunc("/v1/comments/", api.handleComments)
	mux.HandleFunc("/v1/rates/", api.handleRates)
	mux.HandleFunc("/v1/groups", api.handleGroups)
	mux.HandleFunc("/v1/groups/", api.handleGroupSubroutes)
	mux.HandleFunc("/v1/conversations", api.handleConversations)
	mux.HandleFunc("/v1/conversations/", api.handleConversationSubroutes)
	mux.HandleFunc("/v1/media", api.handleMedia)
	mux.HandleFunc("/v1/media/", api.handleMediaSubroutes)
	mux.HandleFunc("/v1/upload", api.handleUpload)

	// Serve uploaded files
	if uploadDir != "" {
		fs := http.FileServer(http.Dir(uploadDir))
		mux.Handle("/uploads/", http.StripPrefix("/uploads/", fs))
	}

	return chain(
		mux,
		recoverMiddleware(logger),
		requestLogMiddleware(logger),
		corsMiddleware(),
		authMiddleware(logger, store),
	)
}
