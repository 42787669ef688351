package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"weekrent/internal/app/commands"
	"weekrent/internal/app/dto"
	"weekrent/internal/app/handlers/support"
	"weekrent/internal/app/middleware"
	"weekrent/internal/app/outbox"
	"weekrent/internal/app/policies"
	"weekrent/internal/app/uow"
	"weekrent/internal/domain/availability"
	domainbooking "weekrent/internal/domain/booking"
	domainproperties "weekrent/internal/domain/properties"
	domainrange "weekrent/internal/domain/shared/daterange"
)

const RequestBookingKey = "booking.request"

var (
	ErrPropertyNotBookable = errors.New("booking: property is not open for booking")
	ErrOwnBooking          = errors.New("booking: owners cannot book their own property")
)

type RequestBookingCommand struct {
	CommandID       string
	PropertyID      string    `validate:"required"`
	GuestID         string    `validate:"required"`
	CheckIn         time.Time `validate:"required"`
	CheckOut        time.Time `validate:"required"`
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return RequestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &dto.Booking{} }

func (c RequestBookingCommand) RequiredRole() string { return "guest" }

type RequestBookingHandler struct {
	UoWFactory uow.UoWFactory
	Inventory  support.Inventory
	Stay       availability.StayPolicy
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Cache      policies.SegmentCache
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*dto.Booking, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Finish(ctx)

	stay, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	propertyID := domainproperties.PropertyID(cmd.PropertyID)
	property, err := unit.Properties().ByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	inventory := h.Inventory.Prefetch(ctx, property)
	// Shares the owner key with cancellations and owner commands.
	if err := unit.Lock(ctx, uow.OwnerLockKey(property.Owner)); err != nil {
		return nil, err
	}
	if property, err = unit.Properties().ByID(ctx, propertyID); err != nil {
		return nil, err
	}
	if !property.IsActive() {
		return nil, ErrPropertyNotBookable
	}
	if string(property.Owner) == cmd.GuestID {
		return nil, ErrOwnBooking
	}

	now := support.Clock(h.Now)
	calendar, err := inventory.Calendar(ctx, unit, property, "")
	if err != nil {
		return nil, err
	}
	if err := availability.ValidateStay(calendar.Segments(), stay, now, h.Stay); err != nil {
		return nil, err
	}

	id := cmd.CommandID
	if id == "" {
		id = uuid.NewString()
	}
	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.BookingID(id),
		PropertyID: property.ID,
		GuestID:    cmd.GuestID,
		Range:      stay,
		Window:     property.Window,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := outbox.RecordFrom(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	support.InvalidateSegments(ctx, h.Cache, h.Logger, property.ID)

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	out := dto.MapBooking(booking)
	return &out, nil
}

var _ commands.Handler[RequestBookingCommand, *dto.Booking] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*RequestBookingCommand)(nil)
