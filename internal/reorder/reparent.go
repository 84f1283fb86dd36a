package reorder

// Reparent moves the dragged item to where the pointer currently is and
// reports whether the tree changed. It runs on every drag-over event and only
// touches the source and destination lists, so it costs O(group size).
//
// Hovering a group (its header or empty body) appends to that group when it
// differs from the item's current one. Hovering an item places the dragged
// item before or after it depending on target.Side.
func Reparent(t *Tree, draggedID string, target HoverTarget) bool {
	currentGroup, currentIndex, ok := t.Locate(draggedID)
	if !ok || target.ID == draggedID {
		return false
	}

	var destGroup string
	hoveredIndex := -1
	switch t.Kind(target.ID) {
	case NodeGroup:
		destGroup = target.ID
	case NodeItem:
		destGroup, hoveredIndex, _ = t.Locate(target.ID)
	default:
		return false
	}

	if destGroup == currentGroup {
		if hoveredIndex < 0 {
			// Pointer is over the item's own group container, not a sibling.
			return false
		}
		toIndex := sameGroupIndex(currentIndex, hoveredIndex, target.Side)
		if toIndex == currentIndex {
			return false
		}
		return t.MoveItemWithinGroup(draggedID, currentIndex, toIndex)
	}

	destIndex := len(t.byID[destGroup].items)
	if hoveredIndex >= 0 {
		destIndex = hoveredIndex
		if target.Side == SideAfter {
			destIndex++
		}
	}
	return t.MoveItemAcrossGroups(draggedID, currentGroup, destGroup, destIndex)
}

// sameGroupIndex converts "before/after the hovered sibling" into the index
// the dragged node ends up at once it has been lifted out of its own slot.
func sameGroupIndex(from, hovered int, side PointerSide) int {
	gap := hovered
	if side == SideAfter {
		gap++
	}
	if from < gap {
		gap--
	}
	return gap
}

// reorderGroup applies a group-drag hover: the dragged group takes the slot
// before or after the hovered group. Hovering an item counts as hovering the
// group that owns it.
func reorderGroup(t *Tree, draggedID string, target HoverTarget) bool {
	hoveredGroup := target.ID
	if t.Kind(target.ID) == NodeItem {
		hoveredGroup, _, _ = t.Locate(target.ID)
	}
	if hoveredGroup == draggedID {
		return false
	}
	from := t.IndexOfGroup(draggedID)
	hovered := t.IndexOfGroup(hoveredGroup)
	if from < 0 || hovered < 0 {
		return false
	}
	return t.MoveGroup(draggedID, from, sameGroupIndex(from, hovered, target.Side))
}
