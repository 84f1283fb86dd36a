package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNavReorderRoundTripPostgres(t *testing.T) {
	s, communityID := openTestStore(t)
	ctx := context.Background()

	g1 := mustInsertGroup(t, s, communityID, "Channels")
	g2 := mustInsertGroup(t, s, communityID, "Docs")
	if g1.Position != 0 || g2.Position != 1 {
		t.Fatalf("expected appended positions 0 and 1, got %d and %d", g1.Position, g2.Position)
	}
	a := mustInsertItem(t, s, communityID, &g1.ID, "general")
	b := mustInsertItem(t, s, communityID, &g1.ID, "random")
	c := mustInsertItem(t, s, communityID, &g2.ID, "handbook")

	// Drag a after c: only the destination group is written.
	err := s.ReorderNavItems(ctx, communityID, []ItemPositionUpdate{
		{ID: c.ID, GroupID: &g2.ID, Position: 0},
		{ID: a.ID, GroupID: &g2.ID, Position: 1},
	})
	if err != nil {
		t.Fatalf("reorder items: %v", err)
	}

	items, err := s.ListNavItems(ctx, communityID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	byID := map[string]NavItem{}
	for _, item := range items {
		byID[item.ID] = item
	}
	if got := byID[a.ID]; got.GroupID == nil || *got.GroupID != g2.ID || got.Position != 1 {
		t.Fatalf("expected a in g2 at 1, got %+v", got)
	}
	if got := byID[b.ID]; got.GroupID == nil || *got.GroupID != g1.ID {
		t.Fatalf("expected b untouched in g1, got %+v", got)
	}

	if err := s.ReorderNavGroups(ctx, communityID, []GroupPositionUpdate{{ID: g2.ID, Position: 0}, {ID: g1.ID, Position: 1}}); err != nil {
		t.Fatalf("reorder groups: %v", err)
	}
	groups, err := s.ListNavGroups(ctx, communityID)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 2 || groups[0].ID != g2.ID {
		t.Fatalf("expected g2 first, got %+v", groups)
	}
}

func TestNavReorderUnknownRowRollsBack(t *testing.T) {
	s, communityID := openTestStore(t)
	ctx := context.Background()

	g := mustInsertGroup(t, s, communityID, "Channels")
	a := mustInsertItem(t, s, communityID, &g.ID, "general")

	err := s.ReorderNavItems(ctx, communityID, []ItemPositionUpdate{
		{ID: a.ID, GroupID: &g.ID, Position: 7},
		{ID: "missing", GroupID: &g.ID, Position: 8},
	})
	if !errors.Is(err, ErrUnknownRow) {
		t.Fatalf("expected ErrUnknownRow, got %v", err)
	}

	items, err := s.ListNavItems(ctx, communityID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if items[0].Position != 0 {
		t.Fatalf("expected rollback to keep position 0, got %d", items[0].Position)
	}

	other := "foreign-group"
	err = s.ReorderNavItems(ctx, communityID, []ItemPositionUpdate{{ID: a.ID, GroupID: &other, Position: 0}})
	if !errors.Is(err, ErrUnknownRow) {
		t.Fatalf("expected ErrUnknownRow for unknown group, got %v", err)
	}
}

func TestDeleteNavGroupUngroupsItems(t *testing.T) {
	s, communityID := openTestStore(t)
	ctx := context.Background()

	g := mustInsertGroup(t, s, communityID, "Channels")
	loose := mustInsertItem(t, s, communityID, nil, "loose")
	a := mustInsertItem(t, s, communityID, &g.ID, "general")

	if err := s.DeleteNavGroup(ctx, communityID, g.ID); err != nil {
		t.Fatalf("delete group: %v", err)
	}
	if err := s.DeleteNavGroup(ctx, communityID, g.ID); !errors.Is(err, ErrUnknownRow) {
		t.Fatalf("expected ErrUnknownRow on second delete, got %v", err)
	}

	items, err := s.ListNavItems(ctx, communityID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 2 || items[0].ID != loose.ID || items[1].ID != a.ID {
		t.Fatalf("expected %s then %s, got %+v", loose.ID, a.ID, items)
	}
	if items[1].GroupID != nil {
		t.Fatalf("expected ungrouped item, got group %s", *items[1].GroupID)
	}
}

func openTestStore(t *testing.T) (*PostgresStore, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	databaseURL := getTestDatabaseURL(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db, err := Open(ctx, databaseURL)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	communityID := "test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM nav_items WHERE community_id=$1`, communityID)
		_, _ = db.Exec(`DELETE FROM nav_groups WHERE community_id=$1`, communityID)
	})
	return NewPostgresStore(db), communityID
}

func mustInsertGroup(t *testing.T, s *PostgresStore, communityID, title string) NavGroup {
	t.Helper()
	g, err := s.InsertNavGroup(context.Background(), NavGroup{ID: uuid.NewString(), CommunityID: communityID, Title: title})
	if err != nil {
		t.Fatalf("insert group: %v", err)
	}
	return g
}

func mustInsertItem(t *testing.T, s *PostgresStore, communityID string, groupID *string, title string) NavItem {
	t.Helper()
	item, err := s.InsertNavItem(context.Background(), NavItem{
		ID: uuid.NewString(), CommunityID: communityID, GroupID: groupID, Title: title, Slug: title, Kind: "channel",
	})
	if err != nil {
		t.Fatalf("insert item: %v", err)
	}
	return item
}

// getTestDatabaseURL returns TEST_DATABASE_URL, skipping the test when it is
// not set.
func getTestDatabaseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	return url
}
