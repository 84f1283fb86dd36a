package reorder

import (
	"context"
	"fmt"
	"time"
)

// Persister writes committed positions to the remote store. Both calls are
// last-writer-wins over the given rows and report a single outcome for the
// whole batch.
type Persister interface {
	ReorderGroups(ctx context.Context, updates []GroupPosition) error
	ReorderItems(ctx context.Context, updates []ItemPosition) error
}

// Result is the outcome of one dispatched commit.
type Result struct {
	Commit Commit
	Err    error
}

const defaultPersistTimeout = 10 * time.Second

type dispatcher struct {
	persister Persister
	timeout   time.Duration
	results   chan Result
}

func newDispatcher(p Persister, timeout time.Duration, buffer int) *dispatcher {
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	return &dispatcher{persister: p, timeout: timeout, results: make(chan Result, buffer)}
}

// dispatch sends the commit in the background. The gesture path never waits
// for it; the outcome arrives on d.results.
func (d *dispatcher) dispatch(ctx context.Context, c Commit) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		d.results <- Result{Commit: c, Err: d.persist(callCtx, c)}
	}()
}

func (d *dispatcher) persist(ctx context.Context, c Commit) error {
	switch c.Kind {
	case CommitGroups:
		if err := d.persister.ReorderGroups(ctx, c.Groups); err != nil {
			return fmt.Errorf("reorder groups (seq %d): %w", c.Seq, err)
		}
	case CommitItems:
		if err := d.persister.ReorderItems(ctx, c.Items); err != nil {
			return fmt.Errorf("reorder items (seq %d): %w", c.Seq, err)
		}
	}
	return nil
}
