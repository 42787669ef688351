package properties

import (
	"context"
	"time"

	"weekrent/internal/app/dto"
	handlersupport "weekrent/internal/app/handlers/support"
	"weekrent/internal/app/queries"
	"weekrent/internal/app/uow"
	"weekrent/internal/domain/advertising"
	domainproperties "weekrent/internal/domain/properties"
)

const OwnerPropertiesKey = "owner.properties"

type OwnerPropertiesQuery struct {
	OwnerID string `validate:"required"`
}

func (q OwnerPropertiesQuery) Key() string          { return OwnerPropertiesKey }
func (q OwnerPropertiesQuery) RequiredRole() string { return "owner" }

// OwnerPropertiesHandler splits an owner's properties into listing tabs.
type OwnerPropertiesHandler struct {
	UoWFactory uow.UoWFactory
	Inventory  handlersupport.Inventory
	Limiter    advertising.Limiter
	Now        func() time.Time
}

func (h *OwnerPropertiesHandler) Handle(ctx context.Context, q OwnerPropertiesQuery) (dto.OwnerProperties, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.OwnerProperties{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	candidates, err := h.Inventory.Candidates(execCtx, unit, domainproperties.OwnerID(q.OwnerID), handlersupport.Clock(h.Now))
	if err != nil {
		return dto.OwnerProperties{}, err
	}
	tabs := h.Limiter.Partition(candidates)
	excluded := make(map[domainproperties.PropertyID]bool, len(tabs.ExcludedFromAdvertising))
	for _, id := range tabs.ExcludedFromAdvertising {
		excluded[id] = true
	}
	mapTab := func(cs []advertising.Candidate) []dto.Property {
		out := make([]dto.Property, 0, len(cs))
		for _, c := range cs {
			item := dto.MapProperty(c.Property, c.Segments)
			item.ExcludedFromAdvertising = excluded[c.Property.ID]
			out = append(out, item)
		}
		return out
	}
	return dto.OwnerProperties{
		OwnerID:     q.OwnerID,
		Active:      mapTab(tabs.Active),
		Expired:     mapTab(tabs.Expired),
		Rented:      mapTab(tabs.Rented),
		Deleted:     mapTab(tabs.Deleted),
		ActiveCount: len(tabs.Active),
		ActiveCap:   h.Limiter.Limit(),
	}, nil
}

var _ queries.Handler[OwnerPropertiesQuery, dto.OwnerProperties] = (*OwnerPropertiesHandler)(nil)
