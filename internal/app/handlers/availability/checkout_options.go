package availability

import (
	"context"
	"time"

	"weekrent/internal/app/dto"
	handlersupport "weekrent/internal/app/handlers/support"
	"weekrent/internal/app/queries"
	"weekrent/internal/app/uow"
	domainavailability "weekrent/internal/domain/availability"
	domainproperties "weekrent/internal/domain/properties"
)

const CheckOutOptionsKey = "availability.checkout_options"

type CheckOutOptionsQuery struct {
	PropertyID string    `validate:"required"`
	CheckIn    time.Time `validate:"required"`
}

func (q CheckOutOptionsQuery) Key() string { return CheckOutOptionsKey }

// CheckOutOptionsHandler validates a check-in against fresh segments and lists the
// check-out dates a stay starting there may end on.
type CheckOutOptionsHandler struct {
	UoWFactory uow.UoWFactory
	Inventory  handlersupport.Inventory
	Stay       domainavailability.StayPolicy
	Now        func() time.Time
}

func (h *CheckOutOptionsHandler) Handle(ctx context.Context, q CheckOutOptionsQuery) (dto.CheckOutOptions, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.CheckOutOptions{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	property, err := unit.Properties().ByID(execCtx, domainproperties.PropertyID(q.PropertyID))
	if err != nil {
		return dto.CheckOutOptions{}, err
	}
	if !property.IsActive() {
		return dto.CheckOutOptions{}, domainavailability.ErrDateUnavailable
	}
	calendar, err := h.Inventory.Calendar(execCtx, unit, property, "")
	if err != nil {
		return dto.CheckOutOptions{}, err
	}
	selection := calendar.Selection(handlersupport.Clock(h.Now), h.Stay)
	if err := selection.SelectCheckIn(q.CheckIn); err != nil {
		return dto.CheckOutOptions{}, err
	}
	return dto.CheckOutOptions{
		PropertyID: q.PropertyID,
		CheckIn:    selection.CheckIn(),
		Options:    selection.CheckOutOptions(),
	}, nil
}

var _ queries.Handler[CheckOutOptionsQuery, dto.CheckOutOptions] = (*CheckOutOptionsHandler)(nil)
