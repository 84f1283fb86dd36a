package reorder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) (*Tracker, *Tree, *[]Gesture) {
	t.Helper()
	tree := mustTree(t, sampleSnapshot())
	var finished []Gesture
	tr := NewTracker(tree, func(_ context.Context, g Gesture) Commit {
		finished = append(finished, g)
		return Plan(tree, g)
	})
	return tr, tree, &finished
}

func TestTrackerIgnoresUnresolvedNodes(t *testing.T) {
	tr, tree, finished := newTestTracker(t)

	require.False(t, tr.OnDragStart("missing"))
	require.False(t, tr.Active())
	require.False(t, tr.OnDragOver("a", SideAfter), "hover without a gesture")

	_, err := tr.OnDragEnd(context.Background())
	require.ErrorIs(t, err, ErrNoGesture)
	require.Empty(t, *finished)

	require.True(t, tr.OnDragStart("a"))
	require.False(t, tr.OnDragOver("a", SideAfter), "hovering the dragged node itself")
	require.False(t, tr.OnDragOver("missing", SideBefore))
	require.Equal(t, []string{"a", "b"}, tree.ItemOrder("g1"))
}

func TestTrackerRecordsOrigin(t *testing.T) {
	tr, _, _ := newTestTracker(t)

	require.True(t, tr.OnDragStart("b"))
	g, ok := tr.Current()
	require.True(t, ok)
	require.Equal(t, NodeItem, g.Kind)
	require.Equal(t, "g1", g.OriginGroupID)
	require.Equal(t, 1, g.OriginIndex)
	require.Equal(t, []string{"a", "b"}, g.Before)

	// The copy is detached from the tracker's state.
	g.Before[0] = "zz"
	again, _ := tr.Current()
	require.Equal(t, "a", again.Before[0])
}

func TestTrackerFinishesOpenGestureOnNewStart(t *testing.T) {
	tr, _, finished := newTestTracker(t)

	require.True(t, tr.OnDragStart("a"))
	require.True(t, tr.OnDragStart("b"))
	require.Len(t, *finished, 1)
	require.Equal(t, "a", (*finished)[0].DraggedID)

	g, ok := tr.Current()
	require.True(t, ok)
	require.Equal(t, "b", g.DraggedID)
}

func TestTrackerClearsGestureWhenFinishPanics(t *testing.T) {
	tree := mustTree(t, sampleSnapshot())
	tr := NewTracker(tree, func(context.Context, Gesture) Commit { panic("boom") })

	require.True(t, tr.OnDragStart("a"))
	require.Panics(t, func() { _, _ = tr.OnDragEnd(context.Background()) })
	require.False(t, tr.Active())
}

func TestGroupDragResolvesItemHoverToOwner(t *testing.T) {
	tr, tree, finished := newTestTracker(t)

	require.True(t, tr.OnDragStart("g2"))
	require.True(t, tr.OnDragOver("a", SideBefore))
	require.Equal(t, []string{"g2", "g1"}, tree.GroupOrder())

	c, err := tr.OnDragEnd(context.Background())
	require.NoError(t, err)
	require.Len(t, *finished, 1)
	require.Equal(t, CommitGroups, c.Kind)
	require.Equal(t, []GroupPosition{{ID: "g2", Position: 0}, {ID: "g1", Position: 1}}, c.Groups)
}

func TestPlanCrossGroupTouchesBothScopes(t *testing.T) {
	tree := mustTree(t, sampleSnapshot())
	g := Gesture{DraggedID: "a", Kind: NodeItem, OriginGroupID: "g1", OriginIndex: 0, Before: []string{"a", "b"}}
	require.True(t, tree.MoveItemAcrossGroups("a", "g1", "g2", 1))

	c := Plan(tree, g)
	require.Equal(t, CommitItems, c.Kind)
	require.Equal(t, "g2", c.Target)
	require.Equal(t, []ItemPosition{
		{ID: "c", GroupID: strp("g2"), Position: 0},
		{ID: "a", GroupID: strp("g2"), Position: 1},
	}, c.Items)
	require.Equal(t, map[string][]string{"g1": {"b"}, "g2": {"c", "a"}}, c.Touched)
	require.Equal(t, []string{"a", "b"}, c.Before["g1"])
	require.Equal(t, []string{"c"}, c.Before["g2"])
}

func TestPlanVanishedNodeCommitsNothing(t *testing.T) {
	tree := mustTree(t, sampleSnapshot())

	require.Equal(t, CommitNone, Plan(tree, Gesture{DraggedID: "gone", Kind: NodeItem, OriginGroupID: "g1"}).Kind)
	require.Equal(t, CommitNone, Plan(tree, Gesture{DraggedID: "gone", Kind: NodeGroup}).Kind)
	require.Equal(t, CommitNone, Plan(tree, Gesture{DraggedID: "b", Kind: NodeItem, OriginGroupID: "g1", OriginIndex: 1}).Kind)
}

func TestPlanUngroupedDestinationSendsNilGroup(t *testing.T) {
	tree := mustTree(t, sampleSnapshot())
	g := Gesture{DraggedID: "c", Kind: NodeItem, OriginGroupID: "g2", OriginIndex: 0, Before: []string{"c"}}
	require.True(t, tree.MoveItemAcrossGroups("c", "g2", UngroupedID, 0))

	c := Plan(tree, g)
	require.Equal(t, UngroupedID, c.Target)
	require.Equal(t, []ItemPosition{{ID: "c", Position: 0}, {ID: "u", Position: 1}}, c.Items)
}
