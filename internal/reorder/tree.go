package reorder

import (
	"fmt"
	"slices"
	"sort"
)

type groupList struct {
	group Group
	items []Item
}

// Tree is the ordered two-level model behind the sidebar. The ungrouped
// bucket is always present and always last. Tree is not safe for concurrent
// use; it belongs to whichever goroutine handles drag events.
type Tree struct {
	groups []*groupList
	byID   map[string]*groupList
	owner  map[string]string
}

// NewTree builds a tree from a server snapshot. Groups and items are ordered
// by position, ties broken by their order in the snapshot. Items naming an
// unknown group land in the ungrouped bucket.
func NewTree(s Snapshot) (*Tree, error) {
	t := &Tree{
		byID:  make(map[string]*groupList, len(s.Groups)+1),
		owner: make(map[string]string, len(s.Items)),
	}

	groups := slices.Clone(s.Groups)
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Position < groups[j].Position })
	for _, g := range groups {
		if g.ID == "" || g.ID == UngroupedID || g.ID == GroupsScope {
			return nil, fmt.Errorf("group %q: %w", g.ID, ErrReservedID)
		}
		if _, ok := t.byID[g.ID]; ok {
			return nil, fmt.Errorf("group %q: %w", g.ID, ErrDuplicateID)
		}
		list := &groupList{group: g}
		t.groups = append(t.groups, list)
		t.byID[g.ID] = list
	}
	bucket := &groupList{group: Group{ID: UngroupedID, Position: ungroupedPosition}}
	t.groups = append(t.groups, bucket)
	t.byID[UngroupedID] = bucket

	items := slices.Clone(s.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	for _, rec := range items {
		if rec.ID == "" {
			return nil, fmt.Errorf("item with empty id: %w", ErrReservedID)
		}
		if _, ok := t.owner[rec.ID]; ok {
			return nil, fmt.Errorf("item %q: %w", rec.ID, ErrDuplicateID)
		}
		groupID := fromWireGroup(rec.GroupID)
		list, ok := t.byID[groupID]
		if !ok {
			groupID = UngroupedID
			list = bucket
		}
		list.items = append(list.items, Item{ID: rec.ID, GroupID: groupID, Title: rec.Title, Position: rec.Position})
		t.owner[rec.ID] = groupID
	}
	return t, nil
}

// Groups returns the groups in display order, ungrouped bucket last.
func (t *Tree) Groups() []Group {
	out := make([]Group, len(t.groups))
	for i, list := range t.groups {
		out[i] = list.group
	}
	return out
}

// Items returns a copy of the group's items in display order.
func (t *Tree) Items(groupID string) []Item {
	list, ok := t.byID[groupID]
	if !ok {
		return nil
	}
	return slices.Clone(list.items)
}

func (t *Tree) HasGroup(groupID string) bool {
	_, ok := t.byID[groupID]
	return ok
}

func (t *Tree) HasItem(itemID string) bool {
	_, ok := t.owner[itemID]
	return ok
}

// Kind classifies a node id, returning 0 when the id is unknown.
func (t *Tree) Kind(nodeID string) NodeKind {
	if _, ok := t.byID[nodeID]; ok {
		return NodeGroup
	}
	if _, ok := t.owner[nodeID]; ok {
		return NodeItem
	}
	return 0
}

func (t *Tree) IndexOfGroup(groupID string) int {
	for i, list := range t.groups {
		if list.group.ID == groupID {
			return i
		}
	}
	return -1
}

// Locate returns the item's owning group and its index there.
func (t *Tree) Locate(itemID string) (string, int, bool) {
	groupID, ok := t.owner[itemID]
	if !ok {
		return "", -1, false
	}
	idx := indexOfItem(t.byID[groupID].items, itemID)
	if idx < 0 {
		invariant("Locate", "item %s indexed under %s but missing from its list", itemID, groupID)
	}
	return groupID, idx, true
}

// MoveItemWithinGroup moves the item at fromIndex to toIndex in the same
// list. It does nothing and returns false when itemID is not at fromIndex.
func (t *Tree) MoveItemWithinGroup(itemID string, fromIndex, toIndex int) bool {
	groupID, ok := t.owner[itemID]
	if !ok {
		return false
	}
	list := t.byID[groupID]
	if fromIndex < 0 || fromIndex >= len(list.items) || list.items[fromIndex].ID != itemID {
		return false
	}
	toIndex = clamp(toIndex, 0, len(list.items)-1)
	if toIndex == fromIndex {
		return false
	}
	item := list.items[fromIndex]
	list.items = slices.Delete(list.items, fromIndex, fromIndex+1)
	list.items = slices.Insert(list.items, toIndex, item)
	return true
}

// MoveItemAcrossGroups re-parents the item into destGroupID at destIndex,
// clamped to [0, len(dest)]. The item is inserted and removed within the same
// call, so it is never absent from every list.
func (t *Tree) MoveItemAcrossGroups(itemID, sourceGroupID, destGroupID string, destIndex int) bool {
	owner, ok := t.owner[itemID]
	if !ok || owner != sourceGroupID {
		return false
	}
	src := t.byID[sourceGroupID]
	dst, ok := t.byID[destGroupID]
	if !ok {
		return false
	}
	from := indexOfItem(src.items, itemID)
	if from < 0 {
		invariant("MoveItemAcrossGroups", "item %s indexed under %s but missing from its list", itemID, sourceGroupID)
	}
	if src == dst {
		return t.MoveItemWithinGroup(itemID, from, destIndex)
	}

	item := src.items[from]
	item.GroupID = destGroupID
	dst.items = slices.Insert(dst.items, clamp(destIndex, 0, len(dst.items)), item)
	src.items = slices.Delete(src.items, from, from+1)
	t.owner[itemID] = destGroupID
	return true
}

// MoveGroup reorders the group list. The ungrouped bucket stays last: it
// cannot be moved and nothing can be moved below it.
func (t *Tree) MoveGroup(groupID string, fromIndex, toIndex int) bool {
	if groupID == UngroupedID {
		return false
	}
	if fromIndex < 0 || fromIndex >= len(t.groups) || t.groups[fromIndex].group.ID != groupID {
		return false
	}
	toIndex = clamp(toIndex, 0, len(t.groups)-2)
	if toIndex == fromIndex {
		return false
	}
	list := t.groups[fromIndex]
	t.groups = slices.Delete(t.groups, fromIndex, fromIndex+1)
	t.groups = slices.Insert(t.groups, toIndex, list)
	return true
}

// SnapshotPositions returns the group's items with dense positions taken
// from list order.
func (t *Tree) SnapshotPositions(groupID string) []ItemPosition {
	list, ok := t.byID[groupID]
	if !ok {
		return nil
	}
	out := make([]ItemPosition, len(list.items))
	for i, item := range list.items {
		out[i] = ItemPosition{ID: item.ID, GroupID: toWireGroup(groupID), Position: i}
	}
	return out
}

// SnapshotGroupPositions returns dense positions for the real groups. The
// ungrouped bucket is not a stored row and is left out.
func (t *Tree) SnapshotGroupPositions() []GroupPosition {
	out := make([]GroupPosition, 0, len(t.groups)-1)
	for _, list := range t.groups {
		if list.group.ID == UngroupedID {
			continue
		}
		out = append(out, GroupPosition{ID: list.group.ID, Position: len(out)})
	}
	return out
}

// renumber rewrites the position fields of a group's items to their dense
// index. Called when a change to that group is committed.
func (t *Tree) renumber(groupID string) {
	list, ok := t.byID[groupID]
	if !ok {
		return
	}
	for i := range list.items {
		list.items[i].Position = i
	}
}

func (t *Tree) renumberGroups() {
	n := 0
	for _, list := range t.groups {
		if list.group.ID == UngroupedID {
			continue
		}
		list.group.Position = n
		n++
	}
}

// GroupOrder returns the ids of the real groups in display order.
func (t *Tree) GroupOrder() []string {
	out := make([]string, 0, len(t.groups)-1)
	for _, list := range t.groups {
		if list.group.ID != UngroupedID {
			out = append(out, list.group.ID)
		}
	}
	return out
}

// ItemOrder returns the ids of the group's items in display order.
func (t *Tree) ItemOrder(groupID string) []string {
	list, ok := t.byID[groupID]
	if !ok {
		return nil
	}
	out := make([]string, len(list.items))
	for i, item := range list.items {
		out[i] = item.ID
	}
	return out
}

// RestoreGroupOrder puts the real groups back into the given order. The ids
// must be exactly the current real groups.
func (t *Tree) RestoreGroupOrder(order []string) error {
	if len(order) != len(t.groups)-1 {
		return fmt.Errorf("group order has %d ids, tree has %d groups: %w", len(order), len(t.groups)-1, ErrNotConserving)
	}
	next := make([]*groupList, 0, len(t.groups))
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		list, ok := t.byID[id]
		if !ok || id == UngroupedID {
			return fmt.Errorf("group %q: %w", id, ErrNotConserving)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("group %q: %w", id, ErrDuplicateID)
		}
		seen[id] = struct{}{}
		next = append(next, list)
	}
	t.groups = append(next, t.byID[UngroupedID])
	t.renumberGroups()
	return nil
}

// RestoreItems replaces the item lists of the named groups. The restored
// lists must hold exactly the items those groups hold now, so no item is
// lost or duplicated across the tree.
func (t *Tree) RestoreItems(lists map[string][]string) error {
	current := make(map[string]Item)
	for groupID := range lists {
		list, ok := t.byID[groupID]
		if !ok {
			return fmt.Errorf("group %q: %w", groupID, ErrNotConserving)
		}
		for _, item := range list.items {
			current[item.ID] = item
		}
	}
	total := 0
	seen := make(map[string]struct{}, len(current))
	for groupID, ids := range lists {
		for _, id := range ids {
			if _, ok := current[id]; !ok {
				return fmt.Errorf("item %q not held by restored groups: %w", id, ErrNotConserving)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("item %q in %s: %w", id, groupID, ErrDuplicateID)
			}
			seen[id] = struct{}{}
			total++
		}
	}
	if total != len(current) {
		return fmt.Errorf("restored %d items, groups hold %d: %w", total, len(current), ErrNotConserving)
	}

	for groupID, ids := range lists {
		list := t.byID[groupID]
		items := make([]Item, len(ids))
		for i, id := range ids {
			item := current[id]
			item.GroupID = groupID
			item.Position = i
			items[i] = item
			t.owner[id] = groupID
		}
		list.items = items
	}
	return nil
}

// View projects the tree for rendering.
func (t *Tree) View() View {
	v := View{Groups: make([]GroupView, len(t.groups))}
	for i, list := range t.groups {
		v.Groups[i] = GroupView{Group: list.group, Items: slices.Clone(list.items)}
	}
	return v
}

// Check panics with *InvariantError when an item is missing, duplicated or
// mis-indexed, or when the ungrouped bucket is not last.
func (t *Tree) Check() {
	if len(t.groups) == 0 || t.groups[len(t.groups)-1].group.ID != UngroupedID {
		invariant("Check", "ungrouped bucket is not last")
	}
	if len(t.byID) != len(t.groups) {
		invariant("Check", "group index has %d entries for %d groups", len(t.byID), len(t.groups))
	}
	seen := make(map[string]string, len(t.owner))
	for _, list := range t.groups {
		if t.byID[list.group.ID] != list {
			invariant("Check", "group %s not indexed", list.group.ID)
		}
		for _, item := range list.items {
			if prev, dup := seen[item.ID]; dup {
				invariant("Check", "item %s in both %s and %s", item.ID, prev, list.group.ID)
			}
			seen[item.ID] = list.group.ID
			if t.owner[item.ID] != list.group.ID {
				invariant("Check", "item %s indexed under %q, listed under %s", item.ID, t.owner[item.ID], list.group.ID)
			}
			if item.GroupID != list.group.ID {
				invariant("Check", "item %s carries group %s, listed under %s", item.ID, item.GroupID, list.group.ID)
			}
		}
	}
	if len(seen) != len(t.owner) {
		invariant("Check", "%d items indexed, %d listed", len(t.owner), len(seen))
	}
}

func indexOfItem(items []Item, itemID string) int {
	for i, item := range items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
