package reorder

import "slices"

type CommitKind int

const (
	CommitNone CommitKind = iota
	CommitGroups
	CommitItems
)

func (k CommitKind) String() string {
	switch k {
	case CommitGroups:
		return "groups"
	case CommitItems:
		return "items"
	default:
		return "none"
	}
}

// Commit is the single persistence call a gesture produces.
type Commit struct {
	Kind CommitKind
	Seq  uint64
	// Target is the scope whose rows are sent: GroupsScope or the group the
	// item was dropped into.
	Target string
	Groups []GroupPosition
	Items  []ItemPosition
	// Touched holds, per scope (a group id or GroupsScope), the order the
	// commit establishes. Before holds the same scopes as they were when the
	// gesture started.
	Touched map[string][]string
	Before  map[string][]string
}

// Scopes returns the commit's scopes in a stable order.
func (c Commit) Scopes() []string {
	out := make([]string, 0, len(c.Touched))
	for scope := range c.Touched {
		out = append(out, scope)
	}
	slices.Sort(out)
	return out
}

// Plan decides what a finished gesture must persist, given the tree as the
// gesture left it. A dropped item sends its destination group only: the
// source group keeps a gap-free order locally and the store derives the rest
// on the next read.
func Plan(t *Tree, g Gesture) Commit {
	switch g.Kind {
	case NodeGroup:
		if !t.HasGroup(g.DraggedID) || slices.Equal(t.GroupOrder(), g.Before) {
			return Commit{Kind: CommitNone}
		}
		return Commit{
			Kind:    CommitGroups,
			Target:  GroupsScope,
			Groups:  t.SnapshotGroupPositions(),
			Touched: map[string][]string{GroupsScope: t.GroupOrder()},
			Before:  map[string][]string{GroupsScope: slices.Clone(g.Before)},
		}
	case NodeItem:
		groupID, idx, ok := t.Locate(g.DraggedID)
		if !ok {
			return Commit{Kind: CommitNone}
		}
		if groupID == g.OriginGroupID && idx == g.OriginIndex {
			return Commit{Kind: CommitNone}
		}
		c := Commit{
			Kind:    CommitItems,
			Target:  groupID,
			Items:   t.SnapshotPositions(groupID),
			Touched: map[string][]string{groupID: t.ItemOrder(groupID)},
			Before:  map[string][]string{g.OriginGroupID: slices.Clone(g.Before)},
		}
		if groupID != g.OriginGroupID {
			c.Touched[g.OriginGroupID] = t.ItemOrder(g.OriginGroupID)
			c.Before[groupID] = slices.DeleteFunc(t.ItemOrder(groupID), func(id string) bool { return id == g.DraggedID })
		}
		return c
	default:
		return Commit{Kind: CommitNone}
	}
}

// finalize plans the commit and renumbers the touched scopes so the local
// position fields match what is about to be persisted.
func finalize(t *Tree, g Gesture) Commit {
	c := Plan(t, g)
	for scope := range c.Touched {
		if scope == GroupsScope {
			t.renumberGroups()
			continue
		}
		t.renumber(scope)
	}
	return c
}
