package properties

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"weekrent/internal/app/dto"
	handlersupport "weekrent/internal/app/handlers/support"
	"weekrent/internal/app/outbox"
	"weekrent/internal/app/policies"
	"weekrent/internal/app/uow"
	"weekrent/internal/domain/advertising"
	"weekrent/internal/domain/availability"
	domainproperties "weekrent/internal/domain/properties"
	domainrange "weekrent/internal/domain/shared/daterange"
)

const (
	CreatePropertyKey     = "properties.create"
	DeletePropertyKey     = "properties.delete"
	ReactivatePropertyKey = "properties.reactivate"
)

var (
	ErrActiveLimitReached = errors.New("properties: active listing limit reached")
	ErrHasActiveBookings  = errors.New("properties: property still has pending or confirmed bookings")
)

type CreatePropertyCommand struct {
	OwnerID         string `validate:"required"`
	Title           string `validate:"required,max=200"`
	WindowStart     time.Time
	WindowEnd       time.Time
	CalendarFeedURL string `validate:"omitempty,url"`
}

func (c CreatePropertyCommand) Key() string          { return CreatePropertyKey }
func (c CreatePropertyCommand) RequiredRole() string { return "owner" }

type DeletePropertyCommand struct {
	OwnerID    string `validate:"required"`
	PropertyID string `validate:"required"`
	Permanent  bool
}

func (c DeletePropertyCommand) Key() string          { return DeletePropertyKey }
func (c DeletePropertyCommand) RequiredRole() string { return "owner" }

type ReactivatePropertyCommand struct {
	OwnerID    string `validate:"required"`
	PropertyID string `validate:"required"`
}

func (c ReactivatePropertyCommand) Key() string          { return ReactivatePropertyKey }
func (c ReactivatePropertyCommand) RequiredRole() string { return "owner" }

// OwnerCommandsHandler holds the owner actions that move a property between tabs.
// Every action takes the owner lock so the active-listing count cannot race.
type OwnerCommandsHandler struct {
	UoWFactory uow.UoWFactory
	Inventory  handlersupport.Inventory
	Limiter    advertising.Limiter
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Cache      policies.SegmentCache
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *OwnerCommandsHandler) Create(ctx context.Context, cmd CreatePropertyCommand) (*dto.Property, error) {
	unit, ctx, err := handlersupport.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Finish(ctx)

	now := handlersupport.Clock(h.Now)
	property, err := domainproperties.NewProperty(domainproperties.CreateParams{
		ID:              domainproperties.PropertyID(uuid.NewString()),
		Owner:           domainproperties.OwnerID(cmd.OwnerID),
		Title:           cmd.Title,
		WindowStart:     cmd.WindowStart,
		WindowEnd:       cmd.WindowEnd,
		CalendarFeedURL: cmd.CalendarFeedURL,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}
	inventory, err := h.Inventory.PrefetchOwner(ctx, unit, property.Owner, property)
	if err != nil {
		return nil, err
	}
	if err := unit.Lock(ctx, uow.OwnerLockKey(property.Owner)); err != nil {
		return nil, err
	}
	segments, err := upcoming(ctx, unit, inventory, property, now)
	if err != nil {
		return nil, err
	}
	if h.Limiter.IsActiveEligible(property, segments) {
		if err := h.ensureRoom(ctx, unit, inventory, property, now); err != nil {
			return nil, err
		}
	}
	if err := unit.Properties().Save(ctx, property); err != nil {
		return nil, err
	}
	if err := outbox.RecordFrom(ctx, h.Outbox, h.Encoder, property); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "property created", "property_id", property.ID, "owner_id", property.Owner)
	out := dto.MapProperty(property, segments)
	return &out, nil
}

func (h *OwnerCommandsHandler) Delete(ctx context.Context, cmd DeletePropertyCommand) (*dto.Property, error) {
	unit, ctx, err := handlersupport.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Finish(ctx)

	property, err := h.owned(ctx, unit, cmd.OwnerID, cmd.PropertyID)
	if err != nil {
		return nil, err
	}
	bookings, err := unit.Bookings().ListByProperty(ctx, property.ID)
	if err != nil {
		return nil, err
	}
	for _, b := range bookings {
		if b.IsBlocking() {
			return nil, ErrHasActiveBookings
		}
	}
	now := handlersupport.Clock(h.Now)
	if cmd.Permanent {
		property.Record(domainproperties.PropertyDeleted{PropertyID: property.ID, OwnerID: property.Owner, Permanent: true, At: now})
		property.Status = domainproperties.StatusDeleted
		if err := unit.Properties().Delete(ctx, property.ID); err != nil {
			return nil, err
		}
	} else {
		if err := property.SoftDelete(now); err != nil {
			return nil, err
		}
		if err := unit.Properties().Save(ctx, property); err != nil {
			return nil, err
		}
	}
	if err := outbox.RecordFrom(ctx, h.Outbox, h.Encoder, property); err != nil {
		return nil, err
	}
	handlersupport.InvalidateSegments(ctx, h.Cache, h.Logger, property.ID)
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "property deleted", "property_id", property.ID, "permanent", cmd.Permanent)
	out := dto.MapProperty(property, nil)
	return &out, nil
}

// Reactivate returns an expired, rented or soft-deleted property to the active tab,
// provided it still has room for a minimum stay and the owner is under the cap.
func (h *OwnerCommandsHandler) Reactivate(ctx context.Context, cmd ReactivatePropertyCommand) (*dto.Property, error) {
	unit, ctx, err := handlersupport.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Finish(ctx)

	inventory, err := h.Inventory.PrefetchOwner(ctx, unit, domainproperties.OwnerID(cmd.OwnerID))
	if err != nil {
		return nil, err
	}
	property, err := h.owned(ctx, unit, cmd.OwnerID, cmd.PropertyID)
	if err != nil {
		return nil, err
	}
	if property.IsActive() {
		return nil, domainproperties.ErrInvalidState
	}
	now := handlersupport.Clock(h.Now)
	segments, err := upcoming(ctx, unit, inventory, property, now)
	if err != nil {
		return nil, err
	}
	if !h.Limiter.Stay.HasBookableSegment(segments) {
		return nil, availability.ErrMinimumStayUnavailable
	}
	if err := h.ensureRoom(ctx, unit, inventory, property, now); err != nil {
		return nil, err
	}
	if err := property.Reactivate(now); err != nil {
		return nil, err
	}
	if err := unit.Properties().Save(ctx, property); err != nil {
		return nil, err
	}
	if err := outbox.RecordFrom(ctx, h.Outbox, h.Encoder, property); err != nil {
		return nil, err
	}
	handlersupport.InvalidateSegments(ctx, h.Cache, h.Logger, property.ID)
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	out := dto.MapProperty(property, segments)
	return &out, nil
}

// owned loads a property after taking its owner's lock.
func (h *OwnerCommandsHandler) owned(ctx context.Context, unit uow.UnitOfWork, ownerID, propertyID string) (*domainproperties.Property, error) {
	owner := domainproperties.OwnerID(ownerID)
	if err := unit.Lock(ctx, uow.OwnerLockKey(owner)); err != nil {
		return nil, err
	}
	property, err := unit.Properties().ByID(ctx, domainproperties.PropertyID(propertyID))
	if err != nil {
		return nil, err
	}
	if property.Owner != owner {
		return nil, domainproperties.ErrNotOwner
	}
	return property, nil
}

func upcoming(ctx context.Context, unit uow.UnitOfWork, inventory handlersupport.Inventory, p *domainproperties.Property, now time.Time) ([]domainrange.DateRange, error) {
	calendar, err := inventory.Calendar(ctx, unit, p, "")
	if err != nil {
		return nil, err
	}
	return availability.Upcoming(calendar.Segments(), now), nil
}

func (h *OwnerCommandsHandler) ensureRoom(ctx context.Context, unit uow.UnitOfWork, inventory handlersupport.Inventory, p *domainproperties.Property, now time.Time) error {
	candidates, err := inventory.Candidates(ctx, unit, p.Owner, now)
	if err != nil {
		return err
	}
	if !h.Limiter.HasRoom(h.Limiter.ActiveCount(candidates, p.ID)) {
		return ErrActiveLimitReached
	}
	return nil
}

func (h *OwnerCommandsHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
