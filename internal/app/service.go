package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"agora/api/internal/config"
	"agora/api/internal/metrics"
	"agora/api/internal/reorder"
	"agora/api/internal/store"
	"agora/api/internal/util"
)

// SnapshotCache holds assembled sidebar snapshots between writes.
// navcache.RedisCache implements it.
type SnapshotCache interface {
	Get(ctx context.Context, communityID string) (reorder.Snapshot, bool, error)
	Set(ctx context.Context, communityID string, snapshot reorder.Snapshot) error
	Invalidate(ctx context.Context, communityID string) error
	Ping(ctx context.Context) error
}

var itemKinds = map[string]struct{}{
	"channel": {},
	"doc":     {},
	"link":    {},
}

type Service struct {
	cfg     config.Config
	store   store.NavStore
	cache   SnapshotCache
	metrics *metrics.Metrics
	logger  *log.Logger
}

type Option func(*Service)

func WithCache(cache SnapshotCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(cfg config.Config, dataStore store.NavStore, opts ...Option) *Service {
	s := &Service{cfg: cfg, store: dataStore, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateGroupInput struct {
	Title string `json:"title"`
}

type CreateItemInput struct {
	GroupID *string `json:"groupId"`
	Title   string  `json:"title"`
	Slug    string  `json:"slug"`
	Kind    string  `json:"kind"`
}

// Bootstrap seeds a starter sidebar for a community that has none.
func (s *Service) Bootstrap(ctx context.Context, communityID string) error {
	groups, err := s.store.ListNavGroups(ctx, communityID)
	if err != nil {
		return err
	}
	items, err := s.store.ListNavItems(ctx, communityID)
	if err != nil {
		return err
	}
	if len(groups) > 0 || len(items) > 0 {
		return nil
	}

	seeds := []struct {
		Title string
		Items []string
	}{
		{Title: "Start here", Items: []string{"welcome", "rules"}},
		{Title: "Community", Items: []string{"general", "introductions", "off-topic"}},
		{Title: "Projects", Items: []string{"roadmap"}},
	}
	for _, seed := range seeds {
		group, err := s.CreateGroup(ctx, communityID, CreateGroupInput{Title: seed.Title})
		if err != nil {
			return err
		}
		for _, slug := range seed.Items {
			if _, err := s.CreateItem(ctx, communityID, CreateItemInput{GroupID: &group.ID, Title: slug, Slug: slug}); err != nil {
				return err
			}
		}
	}
	_, err = s.CreateItem(ctx, communityID, CreateItemInput{Title: "announcements", Slug: "announcements"})
	return err
}

// Snapshot returns the community's groups and items in stored order, served
// from the cache when it holds an entry.
func (s *Service) Snapshot(ctx context.Context, communityID string) (reorder.Snapshot, error) {
	if s.cache != nil {
		snapshot, ok, err := s.cache.Get(ctx, communityID)
		switch {
		case err != nil:
			s.logger.Warn("nav cache get failed", "community", communityID, "err", err)
		case ok:
			s.metrics.CacheHit()
			return snapshot, nil
		default:
			s.metrics.CacheMiss()
		}
	}

	groups, err := s.store.ListNavGroups(ctx, communityID)
	if err != nil {
		return reorder.Snapshot{}, fmt.Errorf("list nav groups: %w", err)
	}
	items, err := s.store.ListNavItems(ctx, communityID)
	if err != nil {
		return reorder.Snapshot{}, fmt.Errorf("list nav items: %w", err)
	}

	snapshot := reorder.Snapshot{
		Groups: make([]reorder.Group, 0, len(groups)),
		Items:  make([]reorder.ItemRecord, 0, len(items)),
	}
	for _, g := range groups {
		snapshot.Groups = append(snapshot.Groups, reorder.Group{ID: g.ID, Title: g.Title, Position: g.Position})
	}
	for _, item := range items {
		snapshot.Items = append(snapshot.Items, reorder.ItemRecord{
			ID:       item.ID,
			GroupID:  item.GroupID,
			Title:    item.Title,
			Position: item.Position,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, communityID, snapshot); err != nil {
			s.logger.Warn("nav cache set failed", "community", communityID, "err", err)
		}
	}
	return snapshot, nil
}

// ReorderGroups writes the given group positions in one transaction. Groups
// not named keep their stored position.
func (s *Service) ReorderGroups(ctx context.Context, communityID string, updates []reorder.GroupPosition) error {
	if err := validateGroupUpdates(updates); err != nil {
		s.metrics.ObserveBatch("groups", len(updates), err, true)
		return err
	}

	rows := make([]store.GroupPositionUpdate, 0, len(updates))
	for _, u := range updates {
		rows = append(rows, store.GroupPositionUpdate{ID: strings.TrimSpace(u.ID), Position: u.Position})
	}
	err := s.store.ReorderNavGroups(ctx, communityID, rows)
	s.metrics.ObserveBatch("groups", len(updates), err, errors.Is(err, store.ErrUnknownRow))
	if err != nil {
		return mapStoreError(err, "group")
	}
	s.invalidate(ctx, communityID)
	return nil
}

// ReorderItems writes the given item placements in one transaction. A nil or
// empty groupId moves the item to the ungrouped bucket.
func (s *Service) ReorderItems(ctx context.Context, communityID string, updates []reorder.ItemPosition) error {
	if err := validateItemUpdates(updates); err != nil {
		s.metrics.ObserveBatch("items", len(updates), err, true)
		return err
	}

	rows := make([]store.ItemPositionUpdate, 0, len(updates))
	for _, u := range updates {
		rows = append(rows, store.ItemPositionUpdate{
			ID:       strings.TrimSpace(u.ID),
			GroupID:  normalizeGroupID(u.GroupID),
			Position: u.Position,
		})
	}
	err := s.store.ReorderNavItems(ctx, communityID, rows)
	s.metrics.ObserveBatch("items", len(updates), err, errors.Is(err, store.ErrUnknownRow))
	if err != nil {
		return mapStoreError(err, "item")
	}
	s.invalidate(ctx, communityID)
	return nil
}

func (s *Service) CreateGroup(ctx context.Context, communityID string, input CreateGroupInput) (reorder.Group, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return reorder.Group{}, validationError("title is required", nil)
	}
	group, err := s.store.InsertNavGroup(ctx, store.NavGroup{
		ID:          util.NewID("grp"),
		CommunityID: communityID,
		Title:       title,
	})
	if err != nil {
		return reorder.Group{}, fmt.Errorf("insert nav group: %w", err)
	}
	s.invalidate(ctx, communityID)
	return reorder.Group{ID: group.ID, Title: group.Title, Position: group.Position}, nil
}

// DeleteGroup removes a group; its items move to the end of the ungrouped
// bucket.
func (s *Service) DeleteGroup(ctx context.Context, communityID, groupID string) error {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" || groupID == reorder.UngroupedID {
		return validationError("a stored group id is required", nil)
	}
	if err := s.store.DeleteNavGroup(ctx, communityID, groupID); err != nil {
		return mapStoreError(err, "group")
	}
	s.invalidate(ctx, communityID)
	return nil
}

func (s *Service) CreateItem(ctx context.Context, communityID string, input CreateItemInput) (reorder.ItemRecord, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return reorder.ItemRecord{}, validationError("title is required", nil)
	}
	kind := strings.TrimSpace(input.Kind)
	if kind == "" {
		kind = "channel"
	}
	if _, ok := itemKinds[kind]; !ok {
		return reorder.ItemRecord{}, validationError("kind must be channel, doc, or link", map[string]any{"kind": kind})
	}
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = strings.ToLower(strings.Join(strings.Fields(title), "-"))
	}

	item, err := s.store.InsertNavItem(ctx, store.NavItem{
		ID:          util.NewID("itm"),
		CommunityID: communityID,
		GroupID:     normalizeGroupID(input.GroupID),
		Title:       title,
		Slug:        slug,
		Kind:        kind,
	})
	if err != nil {
		return reorder.ItemRecord{}, mapStoreError(err, "group")
	}
	s.invalidate(ctx, communityID)
	return reorder.ItemRecord{ID: item.ID, GroupID: item.GroupID, Title: item.Title, Position: item.Position}, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// PingCache checks the snapshot cache. configured is false when the service
// runs without one.
func (s *Service) PingCache(ctx context.Context) (configured bool, err error) {
	if s.cache == nil {
		return false, nil
	}
	return true, s.cache.Ping(ctx)
}

func (s *Service) invalidate(ctx context.Context, communityID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, communityID); err != nil {
		s.logger.Warn("nav cache invalidate failed", "community", communityID, "err", err)
	}
}

func validateGroupUpdates(updates []reorder.GroupPosition) error {
	if len(updates) == 0 {
		return validationError("updates must not be empty", nil)
	}
	ids := make(map[string]struct{}, len(updates))
	positions := make(map[int]struct{}, len(updates))
	for i, u := range updates {
		id := strings.TrimSpace(u.ID)
		if err := validatePosition(i, id, u.Position); err != nil {
			return err
		}
		if id == reorder.UngroupedID {
			return validationError("the ungrouped bucket has no stored position", map[string]any{"index": i})
		}
		if _, dup := ids[id]; dup {
			return validationError("duplicate id in updates", map[string]any{"index": i, "id": id})
		}
		if _, dup := positions[u.Position]; dup {
			return validationError("duplicate position in updates", map[string]any{"index": i, "position": u.Position})
		}
		ids[id] = struct{}{}
		positions[u.Position] = struct{}{}
	}
	return nil
}

func validateItemUpdates(updates []reorder.ItemPosition) error {
	if len(updates) == 0 {
		return validationError("updates must not be empty", nil)
	}
	type slot struct {
		group    string
		position int
	}
	ids := make(map[string]struct{}, len(updates))
	slots := make(map[slot]struct{}, len(updates))
	for i, u := range updates {
		id := strings.TrimSpace(u.ID)
		if err := validatePosition(i, id, u.Position); err != nil {
			return err
		}
		group := reorder.UngroupedID
		if g := normalizeGroupID(u.GroupID); g != nil {
			group = *g
		}
		if _, dup := ids[id]; dup {
			return validationError("duplicate id in updates", map[string]any{"index": i, "id": id})
		}
		key := slot{group: group, position: u.Position}
		if _, dup := slots[key]; dup {
			return validationError("duplicate position within a group", map[string]any{"index": i, "position": u.Position})
		}
		ids[id] = struct{}{}
		slots[key] = struct{}{}
	}
	return nil
}

func validatePosition(index int, id string, position int) error {
	if id == "" {
		return validationError("id is required", map[string]any{"index": index})
	}
	if position < 0 {
		return validationError("position must not be negative", map[string]any{"index": index, "position": position})
	}
	return nil
}

// normalizeGroupID maps the wire forms of "no group" (nil, empty, the
// synthetic bucket id) to nil.
func normalizeGroupID(groupID *string) *string {
	if groupID == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*groupID)
	if trimmed == "" || trimmed == reorder.UngroupedID {
		return nil
	}
	return &trimmed
}

func mapStoreError(err error, kind string) error {
	if errors.Is(err, store.ErrUnknownRow) {
		return notFound("unknown " + kind + " in request")
	}
	return err
}
