package storage

import "errors"

const (
	GenderMale        = 0
	GenderFemale      = 1
	GenderUnspecified = 2
)

const (
	FriendshipStatusPending  = 0
	FriendshipStatusAccepted = 1
)

const (
	MediaTypePhoto = 0
	MediaTypeVideo = 1
)

const (
	PrivacyLevelSecret  = 0
	PrivacyLevelPrivate = 1
	PrivacyLevelPublic  = 2
)

const (
	MemberRoleUser          = 0
	MemberRoleAdministrator = 1
)

const (
	RateMin = 0
	RateMax = 5
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEmailExists       = errors.New("email exists")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidValue      = errors.New("invalid value")
	ErrNotParticipant    = errors.New("not a participant")
	ErrRequestNotAllowed = errors.New("request not allowed")
	ErrNoChange          = errors.New("no change")
	ErrTokenInvalid      = errors.New("token invalid")
	ErrTokenExpired      = errors.New("token expired")
)

type UserCredentialsRow struct {
	UserID             int64
	Email              string
	Password           string
	RegistrationTimeMs int64
}

type UserProfileRow struct {
	UserID        int64
	FirstName     string
	MiddleName    *string
	Surname       string
	ProfPictureID *int64
	Age           int64
	Gender        int64
}

type FriendshipRow struct {
	FriendshipID int64
	User1ID      int64
	User2ID      int64
	Status       int64
	StartMs      *int64
}

type StatusRow struct {
	StatusID       int64
	CreatorID      int64
	Content        string
	CreationTimeMs int64
}

type CommentRow struct {
	CommentID      int64
	StatusID       int64
	UserID         int64
	Content        string
	CreationTimeMs int64
}

type RateRow struct {
	RateID   int64
	StatusID int64
	UserID   int64
	Rate     int64
}

type MediaItemRow struct {
	MediaItemID int64
	Type        int64
	URL         string
	Description *string
}

type GroupRow struct {
	GroupID       int64
	Name          string
	ProfPictureID *int64
	PrivacyLevel  int64
	Description   *string
}

type MembershipRow struct {
	GroupID       int64
	UserID        int64
	Administrator int64
}

type GroupRequestRow struct {
	GroupID int64
	UserID  int64
}

type ConversationRow struct {
	ConversationID    int64
	User1ID           int64
	User2ID           int64
	TimeLastMessageMs int64
}

type MessageRow struct {
	MessageID      int64
	ConversationID int64
	SenderID       int64
	Content        string
	TimeSentMs     int64
}

type AuthTokenRow struct {
	Token       string
	UserID      int64
	CreatedAtMs int64
	ExpiresAtMs int64
}

// Field marks a column as supplied in a partial update. An unset Field leaves
// the stored column untouched; a set Field whose value is a nil pointer writes
// NULL. This keeps "no change" and "clear" distinguishable.
type Field[T any] struct {
	Set   bool
	Value T
}

func SetField[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// NewUser carries every column of the credentials+profile pair created as one
// unit. MiddleName and ProfPictureID may be nil.
type NewUser struct {
	Email         string
	Password      string
	FirstName     string
	MiddleName    *string
	Surname       string
	ProfPictureID *int64
	Age           int64
	Gender        int64
}

type UserUpdate struct {
	Password      Field[string]
	FirstName     Field[string]
	MiddleName    Field[*string]
	Surname       Field[string]
	ProfPictureID Field[*int64]
	Age           Field[int64]
	Gender        Field[int64]
}

type GroupUpdate struct {
	Name          Field[string]
	ProfPictureID Field[*int64]
	PrivacyLevel  Field[int64]
	Description   Field[*string]
}
