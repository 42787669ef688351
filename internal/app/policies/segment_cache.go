package policies

import (
	"context"
	"time"

	domainproperties "weekrent/internal/domain/properties"
	domainrange "weekrent/internal/domain/shared/daterange"
)

// SegmentCache keeps display segments per property. Entries may be stale and are
// never used for cancellation decisions.
type SegmentCache interface {
	Get(ctx context.Context, id domainproperties.PropertyID) ([]domainrange.DateRange, bool, error)
	Set(ctx context.Context, id domainproperties.PropertyID, segments []domainrange.DateRange, ttl time.Duration) error
	Invalidate(ctx context.Context, ids ...domainproperties.PropertyID) error
}
