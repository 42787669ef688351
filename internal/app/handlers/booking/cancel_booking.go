package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"weekrent/internal/app/commands"
	"weekrent/internal/app/dto"
	"weekrent/internal/app/handlers/support"
	"weekrent/internal/app/middleware"
	"weekrent/internal/app/outbox"
	"weekrent/internal/app/policies"
	"weekrent/internal/app/uow"
	domainbooking "weekrent/internal/domain/booking"
	"weekrent/internal/domain/relisting"
	domainrange "weekrent/internal/domain/shared/daterange"
	"weekrent/internal/domain/shared/events"
)

const CancelBookingKey = "booking.cancel"

var ErrNotParticipant = errors.New("booking: requester is neither the guest nor the owner")

type CancelBookingCommand struct {
	BookingID  string `validate:"required"`
	PropertyID string
	// RequestedBy is empty for system requests such as the cancellation topic.
	RequestedBy     string
	Reason          string `validate:"max=500"`
	IdempotencyKeyV string
}

func (c CancelBookingCommand) Key() string { return CancelBookingKey }

func (c CancelBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CancelBookingCommand) ResultPrototype() any { return &dto.CancellationOutcome{} }

type CancelBookingHandler struct {
	UoWFactory uow.UoWFactory
	Engine     relisting.Engine
	Inventory  support.Inventory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Cache      policies.SegmentCache
	Logger     *slog.Logger
	Now        func() time.Time
}

// Handle cancels the booking and applies the relisting decision in the same unit.
// The owner lock is taken before anything the decision depends on is read; external
// feeds are fetched ahead of it.
func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.CancellationOutcome, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Finish(ctx)

	id := domainbooking.BookingID(cmd.BookingID)
	booking, err := unit.Bookings().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cmd.PropertyID != "" && string(booking.PropertyID) != cmd.PropertyID {
		return nil, domainbooking.ErrBookingNotFound
	}
	property, err := unit.Properties().ByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, err
	}
	if cmd.RequestedBy != "" && cmd.RequestedBy != booking.GuestID && cmd.RequestedBy != string(property.Owner) {
		return nil, ErrNotParticipant
	}
	inventory, err := h.Inventory.PrefetchOwner(ctx, unit, property.Owner)
	if err != nil {
		return nil, err
	}
	if err := unit.Lock(ctx, uow.OwnerLockKey(property.Owner)); err != nil {
		return nil, err
	}
	if booking, err = unit.Bookings().ByID(ctx, id); err != nil {
		return nil, err
	}
	if property, err = unit.Properties().ByID(ctx, booking.PropertyID); err != nil {
		return nil, err
	}
	if !booking.IsBlocking() {
		return nil, domainbooking.ErrInvalidState
	}

	now := support.Clock(h.Now)
	today := domainrange.Day(now)
	calendar, err := inventory.Calendar(ctx, unit, property, booking.ID)
	if err != nil {
		return nil, err
	}
	candidates, err := inventory.Candidates(ctx, unit, property.Owner, today)
	if err != nil {
		return nil, err
	}
	limiter := h.Engine.Limiter
	wasEligible := false
	for _, c := range candidates {
		if c.Property.ID == property.ID {
			wasEligible = limiter.IsActiveEligible(c.Property, c.Segments)
		}
	}

	decision, err := h.Engine.Decide(relisting.Input{
		Property:    property,
		Cancelled:   booking.Range,
		Remaining:   calendar.BookedRanges(),
		ActiveCount: limiter.ActiveCount(candidates, property.ID),
		WasEligible: wasEligible,
		Today:       today,
	})
	if err != nil {
		return nil, err
	}
	if err := booking.Cancel(cmd.Reason, now); err != nil {
		return nil, err
	}
	if err := decision.Apply(property, now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := unit.Properties().Save(ctx, property); err != nil {
		return nil, err
	}

	resolved := relisting.CancellationResolved{
		BookingID:  string(booking.ID),
		PropertyID: property.ID,
		OwnerID:    property.Owner,
		Outcome:    decision.Outcome.Kind,
		Tab:        decision.Outcome.Tab,
		At:         now,
	}
	if err := outbox.RecordFrom(ctx, h.Outbox, h.Encoder, booking, property); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, []events.DomainEvent{resolved}); err != nil {
		return nil, err
	}
	support.InvalidateSegments(ctx, h.Cache, h.logger(), property.ID)

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "booking cancelled",
		"booking_id", booking.ID,
		"property_id", property.ID,
		"outcome", decision.Outcome.Kind,
		"property_status", property.Status,
	)

	return &dto.CancellationOutcome{
		BookingID:      string(booking.ID),
		PropertyID:     string(property.ID),
		Outcome:        string(decision.Outcome.Kind),
		Tab:            string(decision.Outcome.Tab),
		PropertyStatus: string(property.Status),
		Freed:          dto.MapRanges(decision.Freed),
		Advertisements: dto.MapRanges(property.Advertisements),
	}, nil
}

func (h *CancelBookingHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[CancelBookingCommand, *dto.CancellationOutcome] = (*CancelBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*CancelBookingCommand)(nil)
