package reorder

import (
	"context"
	"errors"
	"slices"
)

var ErrNoGesture = errors.New("no drag gesture in progress")

// Gesture is what the tracker remembers between drag start and drag end.
type Gesture struct {
	DraggedID     string
	Kind          NodeKind
	OriginGroupID string
	OriginIndex   int
	// Before is the origin group's item order (or the group order, for a
	// group drag) as it was when the gesture started.
	Before []string
}

// Tracker turns drag lifecycle events into tree mutations. Item hovers go
// through Reparent; group hovers reorder the group list directly.
type Tracker struct {
	tree   *Tree
	active *Gesture
	finish func(context.Context, Gesture) Commit
}

func NewTracker(tree *Tree, finish func(context.Context, Gesture) Commit) *Tracker {
	return &Tracker{tree: tree, finish: finish}
}

// Active reports whether a gesture is in progress.
func (tr *Tracker) Active() bool {
	return tr.active != nil
}

// Current returns a copy of the gesture in progress.
func (tr *Tracker) Current() (Gesture, bool) {
	if tr.active == nil {
		return Gesture{}, false
	}
	g := *tr.active
	g.Before = slices.Clone(g.Before)
	return g, true
}

// OnDragStart begins a gesture for nodeID. A gesture still open is finished
// first, as if its drag had ended. It returns false, leaving no gesture
// active, when the node is no longer in the tree.
func (tr *Tracker) OnDragStart(nodeID string) bool {
	if g := tr.active; g != nil {
		tr.active = nil
		tr.finish(context.Background(), *g)
	}
	switch tr.tree.Kind(nodeID) {
	case NodeGroup:
		if nodeID == UngroupedID {
			return false
		}
		tr.active = &Gesture{
			DraggedID:     nodeID,
			Kind:          NodeGroup,
			OriginGroupID: nodeID,
			OriginIndex:   tr.tree.IndexOfGroup(nodeID),
			Before:        tr.tree.GroupOrder(),
		}
	case NodeItem:
		groupID, idx, _ := tr.tree.Locate(nodeID)
		tr.active = &Gesture{
			DraggedID:     nodeID,
			Kind:          NodeItem,
			OriginGroupID: groupID,
			OriginIndex:   idx,
			Before:        tr.tree.ItemOrder(groupID),
		}
	default:
		return false
	}
	return true
}

// OnDragOver applies one hover step and reports whether the tree changed.
// Hovering the dragged node itself, or a node that cannot be resolved, is
// ignored.
func (tr *Tracker) OnDragOver(hoveredID string, side PointerSide) bool {
	g := tr.active
	if g == nil || hoveredID == g.DraggedID {
		return false
	}
	kind := tr.tree.Kind(hoveredID)
	if kind == 0 {
		return false
	}
	target := HoverTarget{ID: hoveredID, Kind: kind, Side: side}
	if g.Kind == NodeGroup {
		return reorderGroup(tr.tree, g.DraggedID, target)
	}
	return Reparent(tr.tree, g.DraggedID, target)
}

// OnDragEnd hands the gesture to the finalizer and clears it. The gesture is
// cleared even if finalizing panics.
func (tr *Tracker) OnDragEnd(ctx context.Context) (Commit, error) {
	g := tr.active
	defer func() { tr.active = nil }()
	if g == nil {
		return Commit{}, ErrNoGesture
	}
	return tr.finish(ctx, *g), nil
}

// reset points the tracker at a rebuilt tree and drops any gesture.
func (tr *Tracker) reset(tree *Tree) {
	tr.tree = tree
	tr.active = nil
}
