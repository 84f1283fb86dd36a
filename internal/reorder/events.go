package reorder

import (
	"context"
	"errors"
	"fmt"
)

type EventType string

const (
	EventDragStart  EventType = "dragStart"
	EventDragOver   EventType = "dragOver"
	EventDragEnd    EventType = "dragEnd"
	EventDragCancel EventType = "dragCancel"
)

// Event is an abstract drag lifecycle event as delivered by the input layer.
type Event struct {
	Type   EventType   `json:"type"`
	NodeID string      `json:"nodeId,omitempty"`
	Side   PointerSide `json:"side,omitempty"`
}

// Handle applies a single event.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventDragStart:
		e.OnDragStart(ev.NodeID)
	case EventDragOver:
		side := ev.Side
		if side == "" {
			side = SideBefore
		}
		e.OnDragOver(ev.NodeID, side)
	case EventDragEnd:
		if _, err := e.OnDragEnd(ctx); err != nil && !errors.Is(err, ErrNoGesture) {
			return err
		}
	case EventDragCancel:
		if _, err := e.OnDragCancel(ctx); err != nil && !errors.Is(err, ErrNoGesture) {
			return err
		}
	default:
		return fmt.Errorf("unknown drag event %q", ev.Type)
	}
	return nil
}

// Run is a single-goroutine event loop: it applies drag events and
// persistence results in arrival order until events is closed, then waits
// for outstanding commits to settle.
func (e *Engine) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-e.disp.results:
			e.Reconcile(res)
		case ev, ok := <-events:
			if !ok {
				if e.tracker.Active() {
					if _, err := e.OnDragCancel(ctx); err != nil {
						return err
					}
				}
				return e.Settle(ctx)
			}
			if err := e.Handle(ctx, ev); err != nil {
				e.logger.Warn("ignoring drag event", "type", ev.Type, "node", ev.NodeID, "err", err)
			}
		}
	}
}
