package availability

import (
	"context"
	"log/slog"
	"time"

	"weekrent/internal/app/dto"
	handlersupport "weekrent/internal/app/handlers/support"
	"weekrent/internal/app/policies"
	"weekrent/internal/app/queries"
	"weekrent/internal/app/uow"
	domainavailability "weekrent/internal/domain/availability"
	domainproperties "weekrent/internal/domain/properties"
)

const GetSegmentsKey = "availability.segments"

type GetSegmentsQuery struct {
	PropertyID string `validate:"required"`
}

func (q GetSegmentsQuery) Key() string { return GetSegmentsKey }

// GetSegmentsHandler serves display segments, from the cache when possible.
type GetSegmentsHandler struct {
	UoWFactory uow.UoWFactory
	Inventory  handlersupport.Inventory
	Stay       domainavailability.StayPolicy
	Cache      policies.SegmentCache
	CacheTTL   time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *GetSegmentsHandler) Handle(ctx context.Context, q GetSegmentsQuery) (dto.Segments, error) {
	id := domainproperties.PropertyID(q.PropertyID)
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Segments{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	property, err := unit.Properties().ByID(execCtx, id)
	if err != nil {
		return dto.Segments{}, err
	}
	if property.Status == domainproperties.StatusDeleted {
		return dto.Segments{}, domainproperties.ErrPropertyNotFound
	}
	out := dto.Segments{PropertyID: q.PropertyID, MinNights: h.Stay.MinimumNights(), Segments: []dto.Range{}}
	if property.HasWindow() {
		w := dto.MapRange(property.Window)
		out.Window = &w
	}

	if h.Cache != nil {
		cached, ok, err := h.Cache.Get(execCtx, id)
		if err != nil {
			h.logger().WarnContext(execCtx, "segment cache read failed", "property_id", id, "error", err)
		} else if ok {
			out.Segments = dto.MapRanges(cached)
			out.Cached = true
			return out, nil
		}
	}

	calendar, err := h.Inventory.Calendar(execCtx, unit, property, "")
	if err != nil {
		return dto.Segments{}, err
	}
	segments := domainavailability.Upcoming(calendar.Segments(), handlersupport.Clock(h.Now))
	if h.Cache != nil {
		if err := h.Cache.Set(execCtx, id, segments, h.CacheTTL); err != nil {
			h.logger().WarnContext(execCtx, "segment cache write failed", "property_id", id, "error", err)
		}
	}
	out.Segments = dto.MapRanges(segments)
	return out, nil
}

func (h *GetSegmentsHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ queries.Handler[GetSegmentsQuery, dto.Segments] = (*GetSegmentsHandler)(nil)
