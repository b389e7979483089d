package domain

import (
	"context"
	"errors"
)

// ErrBadPageToken means a list cursor failed to decode.
var ErrBadPageToken = errors.New("receiver: bad page token")

// Repository reads and writes receivers. Every call names the tenant's user
// table explicitly; absence is (nil, nil).
type Repository interface {
	EnsureTable(ctx context.Context, table string) error
	FindByUsername(ctx context.Context, table, username string) (*User, error)
	FindByCallbackID(ctx context.Context, table, callbackID string) (*User, error)
	Create(ctx context.Context, table string, user *User) error

	// ListPage returns up to limit+1 users ordered by username, starting
	// after afterUsername. The extra row lets callers detect another page.
	ListPage(ctx context.Context, table, afterUsername string, limit int) ([]User, error)
}
