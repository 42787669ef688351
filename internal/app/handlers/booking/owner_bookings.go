package booking

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"weekrent/internal/app/dto"
	handlersupport "weekrent/internal/app/handlers/support"
	"weekrent/internal/app/outbox"
	"weekrent/internal/app/policies"
	"weekrent/internal/app/queries"
	"weekrent/internal/app/uow"
	"weekrent/internal/domain/availability"
	domainbooking "weekrent/internal/domain/booking"
	domainproperties "weekrent/internal/domain/properties"
	domainrange "weekrent/internal/domain/shared/daterange"
)

const (
	ListOwnerBookingsKey    = "owner.bookings.list"
	ConfirmOwnerBookingKey  = "owner.bookings.confirm"
	CompleteOwnerBookingKey = "owner.bookings.complete"
	allStatusesFilterValue  = "all"
)

var ErrBookingNotOwned = errors.New("booking: not owned by owner")

type ListOwnerBookingsQuery struct {
	OwnerID string `validate:"required"`
	Status  string
}

func (q ListOwnerBookingsQuery) Key() string { return ListOwnerBookingsKey }

func (q ListOwnerBookingsQuery) RequiredRole() string { return "owner" }

type ListOwnerBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListOwnerBookingsHandler) Handle(ctx context.Context, q ListOwnerBookingsQuery) ([]dto.Booking, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	props, err := unit.Properties().ListByOwner(execCtx, domainproperties.OwnerID(q.OwnerID))
	if err != nil {
		return nil, err
	}
	statusFilter := strings.ToLower(strings.TrimSpace(q.Status))
	if statusFilter == "" {
		statusFilter = string(domainbooking.StatusPending)
	}

	items := make([]dto.Booking, 0)
	for _, p := range props {
		bookings, err := unit.Bookings().ListByProperty(execCtx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, b := range bookings {
			if statusFilter != allStatusesFilterValue && string(b.Status) != statusFilter {
				continue
			}
			items = append(items, dto.MapBooking(b))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Stay.CheckIn.Before(items[j].Stay.CheckIn)
	})
	return items, nil
}

type ConfirmOwnerBookingCommand struct {
	OwnerID   string `validate:"required"`
	BookingID string `validate:"required"`
}

func (c ConfirmOwnerBookingCommand) Key() string { return ConfirmOwnerBookingKey }

func (c ConfirmOwnerBookingCommand) RequiredRole() string { return "owner" }

type CompleteOwnerBookingCommand struct {
	OwnerID   string `validate:"required"`
	BookingID string `validate:"required"`
}

func (c CompleteOwnerBookingCommand) Key() string { return CompleteOwnerBookingKey }

func (c CompleteOwnerBookingCommand) RequiredRole() string { return "owner" }

// OwnerBookingHandler confirms and completes bookings on the owner's properties.
type OwnerBookingHandler struct {
	UoWFactory uow.UoWFactory
	Inventory  handlersupport.Inventory
	Stay       availability.StayPolicy
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Cache      policies.SegmentCache
	Logger     *slog.Logger
	Now        func() time.Time
}

// Confirm confirms a pending booking. A property left without room for a minimum
// stay is marked rented.
func (h *OwnerBookingHandler) Confirm(ctx context.Context, cmd ConfirmOwnerBookingCommand) (*dto.Booking, error) {
	return h.transition(ctx, cmd.OwnerID, cmd.BookingID, true, func(ctx context.Context, unit uow.UnitOfWork, inventory handlersupport.Inventory, b *domainbooking.Booking, p *domainproperties.Property, now time.Time) error {
		if err := b.Confirm(now); err != nil {
			return err
		}
		if !p.IsActive() {
			return nil
		}
		calendar, err := inventory.Calendar(ctx, unit, p, "")
		if err != nil {
			return err
		}
		if h.Stay.HasBookableSegment(availability.Upcoming(calendar.Segments(), domainrange.Day(now))) {
			return nil
		}
		return p.MarkRented(now)
	})
}

func (h *OwnerBookingHandler) Complete(ctx context.Context, cmd CompleteOwnerBookingCommand) (*dto.Booking, error) {
	return h.transition(ctx, cmd.OwnerID, cmd.BookingID, false, func(_ context.Context, _ uow.UnitOfWork, _ handlersupport.Inventory, b *domainbooking.Booking, _ *domainproperties.Property, now time.Time) error {
		return b.Complete(now)
	})
}

type transitionFunc func(ctx context.Context, unit uow.UnitOfWork, inventory handlersupport.Inventory, b *domainbooking.Booking, p *domainproperties.Property, now time.Time) error

// transition applies fn to an owner's booking under the owner lock. With prefetch
// the property's external feed is fetched before the lock is taken.
func (h *OwnerBookingHandler) transition(ctx context.Context, ownerID, bookingID string, prefetch bool, apply transitionFunc) (*dto.Booking, error) {
	unit, ctx, err := handlersupport.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Finish(ctx)

	inventory := h.Inventory
	if prefetch {
		if b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(bookingID)); err == nil {
			if p, err := unit.Properties().ByID(ctx, b.PropertyID); err == nil && string(p.Owner) == ownerID {
				inventory = h.Inventory.Prefetch(ctx, p)
			}
		}
	}
	if err := unit.Lock(ctx, uow.OwnerLockKey(domainproperties.OwnerID(ownerID))); err != nil {
		return nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(bookingID))
	if err != nil {
		return nil, err
	}
	property, err := unit.Properties().ByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, err
	}
	if string(property.Owner) != ownerID {
		return nil, ErrBookingNotOwned
	}

	if err := apply(ctx, unit, inventory, booking, property, handlersupport.Clock(h.Now)); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if len(property.PendingEvents()) > 0 {
		if err := unit.Properties().Save(ctx, property); err != nil {
			return nil, err
		}
	}
	if err := outbox.RecordFrom(ctx, h.Outbox, h.Encoder, booking, property); err != nil {
		return nil, err
	}
	handlersupport.InvalidateSegments(ctx, h.Cache, h.Logger, property.ID)

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	out := dto.MapBooking(booking)
	return &out, nil
}

var _ queries.Handler[ListOwnerBookingsQuery, []dto.Booking] = (*ListOwnerBookingsHandler)(nil)
