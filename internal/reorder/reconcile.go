package reorder

import (
	"errors"
	"maps"
	"slices"
)

// Failure describes a commit the remote store rejected.
type Failure struct {
	Commit Commit
	Err    error
	// Reverted is false when the local order was left alone: a newer commit
	// had superseded this one, or rolling back would have disturbed a later
	// change. The remote may then disagree with the tree until a reload or
	// retry.
	Reverted bool
}

// reconciler tracks, per scope, the latest commit sequence issued and the
// last order the store confirmed.
type reconciler struct {
	seq     uint64
	latest  map[string]uint64
	good    map[string][]string
	goodSeq map[string]uint64
}

func newReconciler(t *Tree) *reconciler {
	r := &reconciler{
		latest:  make(map[string]uint64),
		good:    make(map[string][]string),
		goodSeq: make(map[string]uint64),
	}
	r.baseline(t)
	return r
}

// baseline records the tree as confirmed state. Sequence numbers keep
// increasing across reloads so results from before a reload read as stale.
func (r *reconciler) baseline(t *Tree) {
	clear(r.latest)
	clear(r.good)
	clear(r.goodSeq)
	r.good[GroupsScope] = t.GroupOrder()
	for _, g := range t.Groups() {
		r.good[g.ID] = t.ItemOrder(g.ID)
	}
	for scope := range r.good {
		r.goodSeq[scope] = r.seq
	}
}

// stamp assigns the next sequence number and marks every touched scope as
// last changed by this commit.
func (r *reconciler) stamp(c *Commit) {
	r.seq++
	c.Seq = r.seq
	for scope := range c.Touched {
		r.latest[scope] = c.Seq
	}
}

// current reports whether c is still the newest commit on the scope it
// persisted. Scopes it only touched locally do not decide this: a later change
// there leaves the remote write just as lost.
func (r *reconciler) current(c Commit) bool {
	if c.Target == "" {
		return false
	}
	return r.latest[c.Target] == c.Seq
}

// owns reports whether no later commit touched any of c's scopes, which is
// what rolling all of them back requires.
func (r *reconciler) owns(c Commit) bool {
	if len(c.Touched) == 0 {
		return false
	}
	for scope := range c.Touched {
		if r.latest[scope] != c.Seq {
			return false
		}
	}
	return true
}

func (r *reconciler) confirm(c Commit) {
	for scope, ids := range c.Touched {
		if c.Seq > r.goodSeq[scope] {
			r.good[scope] = slices.Clone(ids)
			r.goodSeq[scope] = c.Seq
		}
	}
}

// revert rolls the commit's scopes back to the last confirmed order. When the
// confirmed slices no longer hold the same items (an unconfirmed commit moved
// items in between) it falls back to the order captured when the gesture
// started, which always does.
func (r *reconciler) revert(t *Tree, c Commit) error {
	if _, ok := c.Touched[GroupsScope]; ok {
		if err := t.RestoreGroupOrder(r.good[GroupsScope]); err == nil {
			return nil
		}
		return t.RestoreGroupOrder(c.Before[GroupsScope])
	}

	confirmed := make(map[string][]string, len(c.Touched))
	for scope := range c.Touched {
		confirmed[scope] = r.good[scope]
	}
	err := t.RestoreItems(confirmed)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotConserving) {
		return err
	}
	return t.RestoreItems(maps.Clone(c.Before))
}
