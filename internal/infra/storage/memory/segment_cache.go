package memory

import (
	"context"
	"sync"
	"time"

	"weekrent/internal/app/policies"
	domainproperties "weekrent/internal/domain/properties"
	domainrange "weekrent/internal/domain/shared/daterange"
)

type segmentEntry struct {
	segments  []domainrange.DateRange
	expiresAt time.Time
}

// SegmentCache is a process-local policies.SegmentCache.
type SegmentCache struct {
	mu    sync.Mutex
	items map[domainproperties.PropertyID]segmentEntry
	now   func() time.Time
}

func NewSegmentCache() *SegmentCache {
	return &SegmentCache{items: make(map[domainproperties.PropertyID]segmentEntry), now: time.Now}
}

func (c *SegmentCache) Get(ctx context.Context, id domainproperties.PropertyID) ([]domainrange.DateRange, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.items[id]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.items, id)
		return nil, false, nil
	}
	return append([]domainrange.DateRange(nil), entry.segments...), true, nil
}

func (c *SegmentCache) Set(ctx context.Context, id domainproperties.PropertyID, segments []domainrange.DateRange, ttl time.Duration) error {
	entry := segmentEntry{segments: append([]domainrange.DateRange(nil), segments...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[id] = entry
	c.mu.Unlock()
	return nil
}

func (c *SegmentCache) Invalidate(ctx context.Context, ids ...domainproperties.PropertyID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.items, id)
	}
	return nil
}

var _ policies.SegmentCache = (*SegmentCache)(nil)
