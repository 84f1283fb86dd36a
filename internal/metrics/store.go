package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"agora/api/internal/store"
)

// WrapStore returns a NavStore that records StoreLatency for every operation.
func (m *Metrics) WrapStore(inner store.NavStore) store.NavStore {
	if m == nil {
		return inner
	}
	return &metricsStore{inner: inner, latency: m.StoreLatency}
}

type metricsStore struct {
	inner   store.NavStore
	latency *prometheus.HistogramVec
}

func (m *metricsStore) observe(op string, start time.Time) {
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *metricsStore) ListNavGroups(ctx context.Context, communityID string) ([]store.NavGroup, error) {
	defer m.observe("list_nav_groups", time.Now())
	return m.inner.ListNavGroups(ctx, communityID)
}

func (m *metricsStore) ListNavItems(ctx context.Context, communityID string) ([]store.NavItem, error) {
	defer m.observe("list_nav_items", time.Now())
	return m.inner.ListNavItems(ctx, communityID)
}

func (m *metricsStore) InsertNavGroup(ctx context.Context, group store.NavGroup) (store.NavGroup, error) {
	defer m.observe("insert_nav_group", time.Now())
	return m.inner.InsertNavGroup(ctx, group)
}

func (m *metricsStore) InsertNavItem(ctx context.Context, item store.NavItem) (store.NavItem, error) {
	defer m.observe("insert_nav_item", time.Now())
	return m.inner.InsertNavItem(ctx, item)
}

func (m *metricsStore) DeleteNavGroup(ctx context.Context, communityID, groupID string) error {
	defer m.observe("delete_nav_group", time.Now())
	return m.inner.DeleteNavGroup(ctx, communityID, groupID)
}

func (m *metricsStore) ReorderNavGroups(ctx context.Context, communityID string, updates []store.GroupPositionUpdate) error {
	defer m.observe("reorder_nav_groups", time.Now())
	return m.inner.ReorderNavGroups(ctx, communityID, updates)
}

func (m *metricsStore) ReorderNavItems(ctx context.Context, communityID string, updates []store.ItemPositionUpdate) error {
	defer m.observe("reorder_nav_items", time.Now())
	return m.inner.ReorderNavItems(ctx, communityID, updates)
}

func (m *metricsStore) Ping(ctx context.Context) error {
	defer m.observe("ping", time.Now())
	return m.inner.Ping(ctx)
}
