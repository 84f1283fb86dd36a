// Package reorder implements the sidebar's two-level drag-and-drop ordering
// engine: an in-memory tree of groups and items, live re-parenting while a
// drag is in progress, a minimal commit when it ends, and reconciliation of
// that optimistic commit with the remote store.
package reorder

import "math"

// UngroupedID identifies the synthetic bucket holding items without a group.
// It never reaches the remote store; ItemPosition carries a nil GroupID instead.
const UngroupedID = "~ungrouped"

// GroupsScope is the reconciliation scope of the group list itself.
const GroupsScope = "~groups"

const ungroupedPosition = math.MaxInt32

type NodeKind int

const (
	NodeGroup NodeKind = iota + 1
	NodeItem
)

func (k NodeKind) String() string {
	switch k {
	case NodeGroup:
		return "group"
	case NodeItem:
		return "item"
	default:
		return "unknown"
	}
}

// PointerSide says which half of the hovered node the pointer is over.
type PointerSide string

const (
	SideBefore PointerSide = "before"
	SideAfter  PointerSide = "after"
)

// SideFromPointer derives the hover side from the pointer's vertical position
// relative to the hovered node's box.
func SideFromPointer(pointerY, top, height float64) PointerSide {
	if pointerY > top+height/2 {
		return SideAfter
	}
	return SideBefore
}

type Group struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// Item is a navigable leaf as held by the tree. GroupID is UngroupedID for
// items in the synthetic bucket.
type Item struct {
	ID       string `json:"id"`
	GroupID  string `json:"groupId"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// ItemRecord is an item as the remote store reports it.
type ItemRecord struct {
	ID       string  `json:"id"`
	GroupID  *string `json:"groupId"`
	Title    string  `json:"title"`
	Position int     `json:"position"`
}

// Snapshot is the server state the tree is (re)built from.
type Snapshot struct {
	Groups []Group      `json:"groups"`
	Items  []ItemRecord `json:"items"`
}

type GroupPosition struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

type ItemPosition struct {
	ID       string  `json:"id"`
	GroupID  *string `json:"groupId"`
	Position int     `json:"position"`
}

// HoverTarget is the node currently under the pointer.
type HoverTarget struct {
	ID   string
	Kind NodeKind
	Side PointerSide
}

// GroupView is one group and its items in display order.
type GroupView struct {
	Group
	Items []Item `json:"items"`
}

// View is the read-only projection handed to render subscribers.
type View struct {
	Groups []GroupView `json:"groups"`
}

func toWireGroup(groupID string) *string {
	if groupID == UngroupedID {
		return nil
	}
	id := groupID
	return &id
}

func fromWireGroup(groupID *string) string {
	if groupID == nil || *groupID == "" {
		return UngroupedID
	}
	return *groupID
}
