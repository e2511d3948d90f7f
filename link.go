package ghprofile

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LinkedAccount is a persisted GitHub link for a local user. The credentials
// in it come straight from a TokenSet; this package hands them to a LinkStore
// and never holds them itself.
type LinkedAccount struct {
	UserID       int64
	GithubID     int64
	Login        string
	AccessToken  string
	RefreshToken string
	Scope        string
	LinkedAt     time.Time
}

// LinkStore persists linked accounts keyed by user id. Implementations live
// outside this package; stores/postgres provides one.
type LinkStore interface {
	UpsertLinkedAccount(ctx context.Context, account LinkedAccount) (uuid.UUID, error)
	GetLinkedAccount(ctx context.Context, userID int64) (*LinkedAccount, error)
	DeleteLinkedAccount(ctx context.Context, userID int64) error
}
