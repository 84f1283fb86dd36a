package reorder

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

type Option func(*Engine)

func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPersistTimeout bounds each background persistence call.
func WithPersistTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithCheck runs Tree.Check after every mutation. Meant for tests and the
// drag replay tool.
func WithCheck() Option {
	return func(e *Engine) { e.check = true }
}

// Engine owns the tree and drives a drag gesture from start to commit. All
// methods must be called from one goroutine (the UI loop, or Run); only the
// background persistence calls run elsewhere, and they never touch the tree.
type Engine struct {
	tree      *Tree
	tracker   *Tracker
	recon     *reconciler
	disp      *dispatcher
	logger    *log.Logger
	timeout   time.Duration
	check     bool
	inflight  int
	parked    []Result
	listeners []func(View)
	failures  []func(Failure)
}

func NewEngine(snapshot Snapshot, persister Persister, opts ...Option) (*Engine, error) {
	tree, err := NewTree(snapshot)
	if err != nil {
		return nil, fmt.Errorf("build tree: %w", err)
	}
	e := &Engine{tree: tree, logger: log.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.recon = newReconciler(tree)
	e.disp = newDispatcher(persister, e.timeout, 64)
	e.tracker = NewTracker(tree, e.finish)
	return e, nil
}

// Tree exposes the model for reading. Callers must not mutate it.
func (e *Engine) Tree() *Tree { return e.tree }

func (e *Engine) View() View { return e.tree.View() }

// Subscribe registers a render listener, called after every step that
// changed the tree.
func (e *Engine) Subscribe(fn func(View)) {
	e.listeners = append(e.listeners, fn)
}

// OnFailure registers a listener for rejected commits. Failure.Reverted says
// whether the tree was rolled back.
func (e *Engine) OnFailure(fn func(Failure)) {
	e.failures = append(e.failures, fn)
}

// Results delivers persistence outcomes. The owner passes each one to
// Reconcile; Run does this itself.
func (e *Engine) Results() <-chan Result { return e.disp.results }

// InFlight is the number of dispatched commits not yet reconciled.
func (e *Engine) InFlight() int { return e.inflight }

func (e *Engine) Dragging() bool { return e.tracker.Active() }

// OnDragStart begins a gesture. A gesture left open by a lost drag end is
// committed first.
func (e *Engine) OnDragStart(nodeID string) bool {
	if g, open := e.tracker.Current(); open {
		e.logger.Warn("drag start with a gesture still open; ending it", "open", g.DraggedID, "node", nodeID)
		if _, err := e.OnDragEnd(context.Background()); err != nil {
			e.logger.Error("ending abandoned gesture", "node", g.DraggedID, "err", err)
		}
	}
	ok := e.tracker.OnDragStart(nodeID)
	if !ok {
		e.logger.Debug("drag start ignored: node not in tree", "node", nodeID)
	}
	return ok
}

func (e *Engine) OnDragOver(hoveredID string, side PointerSide) bool {
	changed := e.tracker.OnDragOver(hoveredID, side)
	if changed {
		e.mutated()
	}
	return changed
}

// OnDragEnd commits the gesture and returns the commit that was dispatched
// (Kind CommitNone when nothing needed saving). Gesture state is cleared
// whatever happens.
func (e *Engine) OnDragEnd(ctx context.Context) (Commit, error) {
	c, err := e.tracker.OnDragEnd(ctx)
	if err != nil {
		return c, err
	}
	e.mutated()
	e.drainParked()
	return c, nil
}

// OnDragCancel ends the gesture where the pointer last left it. There is no
// revert-to-origin on cancel; a cancelled drag commits like a drop.
func (e *Engine) OnDragCancel(ctx context.Context) (Commit, error) {
	return e.OnDragEnd(ctx)
}

func (e *Engine) finish(ctx context.Context, g Gesture) Commit {
	c := finalize(e.tree, g)
	if c.Kind == CommitNone {
		e.logger.Debug("drop needs no save", "node", g.DraggedID, "kind", g.Kind)
		return c
	}
	e.recon.stamp(&c)
	e.inflight++
	e.disp.dispatch(ctx, c)
	e.logger.Debug("commit dispatched", "seq", c.Seq, "kind", c.Kind, "scopes", c.Scopes())
	return c
}

// Reconcile applies one persistence outcome. Outcomes arriving mid-gesture
// are held until the gesture ends so the drag is never disturbed.
func (e *Engine) Reconcile(res Result) {
	if e.tracker.Active() {
		e.parked = append(e.parked, res)
		return
	}
	e.apply(res)
}

func (e *Engine) drainParked() {
	parked := e.parked
	e.parked = nil
	for _, res := range parked {
		e.apply(res)
	}
}

func (e *Engine) apply(res Result) {
	if e.inflight > 0 {
		e.inflight--
	}
	c := res.Commit
	if res.Err == nil {
		e.recon.confirm(c)
		return
	}

	switch {
	case !e.recon.current(c):
		e.logger.Warn("persistence failure superseded by a newer commit", "seq", c.Seq, "target", c.Target, "err", res.Err)
	case !e.recon.owns(c):
		e.logger.Error("persisting reorder failed; a later change blocks the revert", "seq", c.Seq, "scopes", c.Scopes(), "err", res.Err)
	default:
		e.logger.Error("persisting reorder failed; reverting", "seq", c.Seq, "kind", c.Kind, "scopes", c.Scopes(), "err", res.Err)
		if err := e.recon.revert(e.tree, c); err != nil {
			e.logger.Error("revert failed; keeping local order", "seq", c.Seq, "err", err)
			break
		}
		e.mutated()
		e.emit(Failure{Commit: c, Err: res.Err, Reverted: true})
		return
	}
	e.emit(Failure{Commit: c, Err: res.Err})
}

func (e *Engine) emit(f Failure) {
	for _, fn := range e.failures {
		fn(f)
	}
}

// Retry reinstates the order a failed commit tried to save and commits it
// again under a new sequence number. It refuses when the tree has moved on
// and the old order no longer holds the same items.
func (e *Engine) Retry(ctx context.Context, f Failure) (Commit, error) {
	if e.tracker.Active() {
		return Commit{}, fmt.Errorf("retry during drag: %w", ErrStaleFailure)
	}
	old := f.Commit
	c := Commit{Kind: old.Kind, Target: old.Target, Touched: make(map[string][]string, len(old.Touched)), Before: make(map[string][]string, len(old.Touched))}
	for scope := range old.Touched {
		if scope == GroupsScope {
			c.Before[scope] = e.tree.GroupOrder()
		} else {
			c.Before[scope] = e.tree.ItemOrder(scope)
		}
	}

	var err error
	if _, ok := old.Touched[GroupsScope]; ok {
		err = e.tree.RestoreGroupOrder(old.Touched[GroupsScope])
	} else {
		err = e.tree.RestoreItems(old.Touched)
	}
	if err != nil {
		return Commit{}, fmt.Errorf("retry seq %d: %w", old.Seq, err)
	}

	for scope := range old.Touched {
		if scope == GroupsScope {
			c.Touched[scope] = e.tree.GroupOrder()
			c.Groups = e.tree.SnapshotGroupPositions()
			continue
		}
		c.Touched[scope] = e.tree.ItemOrder(scope)
	}
	if c.Kind == CommitItems {
		c.Items = e.tree.SnapshotPositions(c.Target)
		e.tree.renumber(c.Target)
	}
	e.mutated()
	e.recon.stamp(&c)
	e.inflight++
	e.disp.dispatch(ctx, c)
	return c, nil
}

// Reload discards local order in favour of a fresh server snapshot. Any
// gesture in progress is dropped; results of earlier commits read as stale.
func (e *Engine) Reload(snapshot Snapshot) error {
	tree, err := NewTree(snapshot)
	if err != nil {
		return fmt.Errorf("build tree: %w", err)
	}
	e.tree = tree
	e.tracker.reset(tree)
	e.parked = nil
	e.recon.baseline(tree)
	e.notify()
	return nil
}

// Settle blocks until every dispatched commit has been reconciled.
func (e *Engine) Settle(ctx context.Context) error {
	for e.inflight > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-e.disp.results:
			e.Reconcile(res)
			if e.tracker.Active() {
				// Parked results stay counted until the gesture ends.
				return nil
			}
		}
	}
	return nil
}

func (e *Engine) mutated() {
	if e.check {
		e.tree.Check()
	}
	e.notify()
}

func (e *Engine) notify() {
	if len(e.listeners) == 0 {
		return
	}
	v := e.tree.View()
	for _, fn := range e.listeners {
		fn(v)
	}
}
