package reorder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fourInOneGroup(t *testing.T) *Tree {
	t.Helper()
	return mustTree(t, Snapshot{
		Groups: []Group{{ID: "g"}, {ID: "h"}},
		Items: []ItemRecord{
			{ID: "a", GroupID: strp("g"), Position: 0},
			{ID: "b", GroupID: strp("g"), Position: 1},
			{ID: "c", GroupID: strp("g"), Position: 2},
			{ID: "d", GroupID: strp("g"), Position: 3},
			{ID: "x", GroupID: strp("h"), Position: 0},
		},
	})
}

func TestReparentSameGroup(t *testing.T) {
	tests := []struct {
		name    string
		dragged string
		hovered string
		side    PointerSide
		want    []string
		changed bool
	}{
		{name: "down before", dragged: "a", hovered: "c", side: SideBefore, want: []string{"b", "a", "c", "d"}, changed: true},
		{name: "down after", dragged: "a", hovered: "c", side: SideAfter, want: []string{"b", "c", "a", "d"}, changed: true},
		{name: "up before", dragged: "d", hovered: "b", side: SideBefore, want: []string{"a", "d", "b", "c"}, changed: true},
		{name: "up after", dragged: "d", hovered: "b", side: SideAfter, want: []string{"a", "b", "d", "c"}, changed: true},
		{name: "to end", dragged: "a", hovered: "d", side: SideAfter, want: []string{"b", "c", "d", "a"}, changed: true},
		{name: "to start", dragged: "d", hovered: "a", side: SideBefore, want: []string{"d", "a", "b", "c"}, changed: true},
		{name: "already before next", dragged: "b", hovered: "c", side: SideBefore, want: []string{"a", "b", "c", "d"}},
		{name: "already after previous", dragged: "b", hovered: "a", side: SideAfter, want: []string{"a", "b", "c", "d"}},
		{name: "own container", dragged: "b", hovered: "g", side: SideAfter, want: []string{"a", "b", "c", "d"}},
		{name: "self", dragged: "b", hovered: "b", side: SideAfter, want: []string{"a", "b", "c", "d"}},
		{name: "unknown target", dragged: "b", hovered: "zz", side: SideAfter, want: []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := fourInOneGroup(t)
			target := HoverTarget{ID: tt.hovered, Kind: tree.Kind(tt.hovered), Side: tt.side}
			require.Equal(t, tt.changed, Reparent(tree, tt.dragged, target))
			require.Equal(t, tt.want, tree.ItemOrder("g"))
			require.NotPanics(t, tree.Check)
		})
	}
}

func TestReparentAcrossGroups(t *testing.T) {
	t.Run("after item", func(t *testing.T) {
		tree := mustTree(t, sampleSnapshot())
		require.True(t, Reparent(tree, "a", HoverTarget{ID: "c", Kind: NodeItem, Side: SideAfter}))
		require.Equal(t, []string{"b"}, tree.ItemOrder("g1"))
		require.Equal(t, []string{"c", "a"}, tree.ItemOrder("g2"))
	})

	t.Run("before item", func(t *testing.T) {
		tree := mustTree(t, sampleSnapshot())
		require.True(t, Reparent(tree, "a", HoverTarget{ID: "c", Kind: NodeItem, Side: SideBefore}))
		require.Equal(t, []string{"a", "c"}, tree.ItemOrder("g2"))
	})

	t.Run("container appends", func(t *testing.T) {
		tree := mustTree(t, sampleSnapshot())
		require.True(t, Reparent(tree, "a", HoverTarget{ID: "g2", Kind: NodeGroup, Side: SideBefore}))
		require.Equal(t, []string{"c", "a"}, tree.ItemOrder("g2"))
	})

	t.Run("into empty group", func(t *testing.T) {
		tree := mustTree(t, Snapshot{
			Groups: []Group{{ID: "g1"}, {ID: "empty", Position: 1}},
			Items:  []ItemRecord{{ID: "a", GroupID: strp("g1")}},
		})
		require.True(t, Reparent(tree, "a", HoverTarget{ID: "empty", Kind: NodeGroup}))
		require.Empty(t, tree.ItemOrder("g1"))
		require.Equal(t, []string{"a"}, tree.ItemOrder("empty"))
	})

	t.Run("into ungrouped", func(t *testing.T) {
		tree := mustTree(t, sampleSnapshot())
		require.True(t, Reparent(tree, "c", HoverTarget{ID: "u", Kind: NodeItem, Side: SideBefore}))
		require.Equal(t, []string{"c", "u"}, tree.ItemOrder(UngroupedID))
		require.Equal(t, []ItemPosition{
			{ID: "c", Position: 0},
			{ID: "u", Position: 1},
		}, tree.SnapshotPositions(UngroupedID))
	})
}

func TestReorderGroupHover(t *testing.T) {
	tree := mustTree(t, Snapshot{Groups: []Group{{ID: "g1"}, {ID: "g2", Position: 1}, {ID: "g3", Position: 2}}})

	require.True(t, reorderGroup(tree, "g1", HoverTarget{ID: "g3", Kind: NodeGroup, Side: SideAfter}))
	require.Equal(t, []string{"g2", "g3", "g1"}, tree.GroupOrder())

	require.False(t, reorderGroup(tree, "g1", HoverTarget{ID: UngroupedID, Kind: NodeGroup, Side: SideAfter}), "nothing goes below ungrouped")
	require.Equal(t, UngroupedID, tree.Groups()[3].ID)

	require.True(t, reorderGroup(tree, "g1", HoverTarget{ID: "g2", Kind: NodeGroup, Side: SideBefore}))
	require.Equal(t, []string{"g1", "g2", "g3"}, tree.GroupOrder())
}

func TestSideFromPointer(t *testing.T) {
	require.Equal(t, SideBefore, SideFromPointer(10, 0, 40))
	require.Equal(t, SideBefore, SideFromPointer(20, 0, 40), "midpoint counts as before")
	require.Equal(t, SideAfter, SideFromPointer(20.5, 0, 40))
	require.Equal(t, SideAfter, SideFromPointer(139, 100, 40))
}
