// Package service provisions receivers inside a tenant's user table.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/umagate/umagate/internal/clock"
	"github.com/umagate/umagate/internal/receiver/domain"
	"github.com/umagate/umagate/pkg/db/pagination"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Repo  domain.Repository
	GenID *snowflake.Node
	Clock clock.Clock
}

// Store wraps the repository with id, callback-token, and timestamp
// assignment.
type Store struct {
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func NewStore(p Params) *Store {
	return &Store{repo: p.Repo, genID: p.GenID, clock: p.Clock}
}

// Create registers a receiver. A missing callback id gets a fresh opaque
// token.
func (s *Store) Create(ctx context.Context, table string, user domain.User) (*domain.User, error) {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return nil, fmt.Errorf("receiver: username is required")
	}
	if user.CallbackID == "" {
		user.CallbackID = uuid.NewString()
	}
	if user.ComplianceStatus == "" {
		user.ComplianceStatus = domain.ComplianceUnverified
	}
	user.ID = s.genID.Generate()
	now := s.clock.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := s.repo.Create(ctx, table, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) ByUsername(ctx context.Context, table, username string) (*domain.User, error) {
	return s.repo.FindByUsername(ctx, table, username)
}

func (s *Store) ByCallbackID(ctx context.Context, table, callbackID string) (*domain.User, error) {
	return s.repo.FindByCallbackID(ctx, table, callbackID)
}

// ListPage pages through a tenant's receivers by username cursor.
func (s *Store) ListPage(ctx context.Context, table string, p pagination.Pagination) ([]domain.User, *pagination.PageInfo, error) {
	var after string
	if p.PageToken != "" {
		cursor, err := pagination.DecodeCursor(p.PageToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrBadPageToken, err)
		}
		after = cursor.Key
	}

	limit := p.Limit()
	users, err := s.repo.ListPage(ctx, table, after, limit)
	if err != nil {
		return nil, nil, err
	}

	users, info := pagination.Trim(users, limit, func(u domain.User) string {
		return u.Username
	})
	return users, info, nil
}
