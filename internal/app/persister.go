package app

import (
	"context"

	"agora/api/internal/reorder"
)

// CommunityPersister lets an in-process engine write straight through the
// service, with the same validation and cache invalidation the HTTP API
// applies.
type CommunityPersister struct {
	service     *Service
	communityID string
}

func (s *Service) Persister(communityID string) *CommunityPersister {
	return &CommunityPersister{service: s, communityID: communityID}
}

func (p *CommunityPersister) ReorderGroups(ctx context.Context, updates []reorder.GroupPosition) error {
	return p.service.ReorderGroups(ctx, p.communityID, updates)
}

func (p *CommunityPersister) ReorderItems(ctx context.Context, updates []reorder.ItemPosition) error {
	return p.service.ReorderItems(ctx, p.communityID, updates)
}
