package store

import (
	"context"
	"time"
)

type NavGroup struct {
	ID          string
	CommunityID string
	Title       string
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NavItem is a sidebar entry. GroupID is nil for ungrouped items.
type NavItem struct {
	ID          string
	CommunityID string
	GroupID     *string
	Title       string
	Slug        string
	Kind        string
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type GroupPositionUpdate struct {
	ID       string
	Position int
}

type ItemPositionUpdate struct {
	ID       string
	GroupID  *string
	Position int
}

// NavStore is the persistence surface the API serves the sidebar from.
// PostgresStore implements it; wrappers add metrics.
type NavStore interface {
	ListNavGroups(ctx context.Context, communityID string) ([]NavGroup, error)
	ListNavItems(ctx context.Context, communityID string) ([]NavItem, error)
	InsertNavGroup(ctx context.Context, group NavGroup) (NavGroup, error)
	InsertNavItem(ctx context.Context, item NavItem) (NavItem, error)
	DeleteNavGroup(ctx context.Context, communityID, groupID string) error
	ReorderNavGroups(ctx context.Context, communityID string, updates []GroupPositionUpdate) error
	ReorderNavItems(ctx context.Context, communityID string, updates []ItemPositionUpdate) error
	Ping(ctx context.Context) error
}
