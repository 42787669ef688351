package properties

import (
	"context"
	"errors"
	"strings"
	"time"

	"weekrent/internal/domain/shared/daterange"
	"weekrent/internal/domain/shared/events"
)

var (
	ErrPropertyNotFound = errors.New("properties: not found")
	ErrInvalidState     = errors.New("properties: invalid state transition")
	ErrInvalidWindow    = errors.New("properties: advertised window start must not be after its end")
	ErrTitleRequired    = errors.New("properties: title is required")
	ErrNotOwner         = errors.New("properties: not owned by requester")
)

type PropertyID string
type OwnerID string

type Status string

const (
	StatusActive  Status = "active"
	StatusRented  Status = "rented"
	StatusExpired Status = "expired"
	StatusDeleted Status = "deleted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusRented, StatusExpired, StatusDeleted:
		return true
	}
	return false
}

type Property struct {
	ID              PropertyID
	Owner           OwnerID
	Title           string
	Window          daterange.DateRange
	Status          Status
	Advertisements  []daterange.DateRange
	CalendarFeedURL string
	StatusReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id PropertyID) (*Property, error)
	Save(ctx context.Context, property *Property) error
	ListByOwner(ctx context.Context, owner OwnerID) ([]*Property, error)
	Delete(ctx context.Context, id PropertyID) error
}

type CreateParams struct {
	ID              PropertyID
	Owner           OwnerID
	Title           string
	WindowStart     time.Time
	WindowEnd       time.Time
	CalendarFeedURL string
	Now             time.Time
}

// NewWindow normalizes an advertised window. Both bounds unset means no window.
func NewWindow(start, end time.Time) (daterange.DateRange, error) {
	if start.IsZero() && end.IsZero() {
		return daterange.DateRange{}, nil
	}
	if start.IsZero() || end.IsZero() {
		return daterange.DateRange{}, ErrInvalidWindow
	}
	w := daterange.DateRange{CheckIn: daterange.Day(start), CheckOut: daterange.Day(end)}
	if w.CheckIn.After(w.CheckOut) {
		return daterange.DateRange{}, ErrInvalidWindow
	}
	return w, nil
}

func NewProperty(params CreateParams) (*Property, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("properties: id is required")
	}
	if strings.TrimSpace(string(params.Owner)) == "" {
		return nil, errors.New("properties: owner is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	window, err := NewWindow(params.WindowStart, params.WindowEnd)
	if err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	p := &Property{
		ID:              params.ID,
		Owner:           params.Owner,
		Title:           strings.TrimSpace(params.Title),
		Window:          window,
		Status:          StatusActive,
		CalendarFeedURL: strings.TrimSpace(params.CalendarFeedURL),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !window.Empty() {
		p.Advertisements = []daterange.DateRange{window}
	}
	p.Record(PropertyCreated{PropertyID: p.ID, OwnerID: p.Owner, Window: p.Window, At: now})
	return p, nil
}

func (p *Property) HasWindow() bool {
	return !p.Window.Empty()
}

func (p *Property) IsActive() bool {
	return p.Status == StatusActive
}

// ExtendAdvertisement folds freed ranges into the existing advertisements of an active property.
func (p *Property) ExtendAdvertisement(freed []daterange.DateRange, now time.Time) error {
	if p.Status != StatusActive {
		return ErrInvalidState
	}
	p.Advertisements = daterange.Union(append(append([]daterange.DateRange(nil), p.Advertisements...), freed...))
	p.StatusReason = ""
	p.touch(now)
	p.Record(AdvertisementExtended{PropertyID: p.ID, Advertisements: p.Advertisements, At: p.UpdatedAt})
	return nil
}

// Relist advertises freed ranges and puts the property back into the active pool.
func (p *Property) Relist(freed []daterange.DateRange, now time.Time) error {
	if p.Status == StatusDeleted {
		return ErrInvalidState
	}
	ads := append([]daterange.DateRange(nil), freed...)
	if p.Status == StatusActive {
		ads = append(ads, p.Advertisements...)
	}
	p.Advertisements = daterange.Union(ads)
	p.Status = StatusActive
	p.StatusReason = ""
	p.touch(now)
	p.Record(PropertyRelisted{PropertyID: p.ID, OwnerID: p.Owner, Advertisements: p.Advertisements, At: p.UpdatedAt})
	return nil
}

func (p *Property) Expire(reason string, now time.Time) error {
	if p.Status == StatusDeleted {
		return ErrInvalidState
	}
	p.Status = StatusExpired
	p.StatusReason = reason
	p.touch(now)
	p.Record(PropertyExpired{PropertyID: p.ID, OwnerID: p.Owner, Reason: reason, At: p.UpdatedAt})
	return nil
}

func (p *Property) MarkRented(now time.Time) error {
	if p.Status != StatusActive {
		return ErrInvalidState
	}
	p.Status = StatusRented
	p.StatusReason = ""
	p.touch(now)
	p.Record(PropertyRented{PropertyID: p.ID, At: p.UpdatedAt})
	return nil
}

func (p *Property) SoftDelete(now time.Time) error {
	if p.Status == StatusDeleted {
		return ErrInvalidState
	}
	p.Status = StatusDeleted
	p.touch(now)
	p.Record(PropertyDeleted{PropertyID: p.ID, OwnerID: p.Owner, At: p.UpdatedAt})
	return nil
}

// Reactivate is the owner action that returns a property to the active pool.
// Quota checks belong to the caller.
func (p *Property) Reactivate(now time.Time) error {
	if p.Status == StatusActive {
		return ErrInvalidState
	}
	p.Status = StatusActive
	p.StatusReason = ""
	if len(p.Advertisements) == 0 && p.HasWindow() {
		p.Advertisements = []daterange.DateRange{p.Window}
	}
	p.touch(now)
	p.Record(PropertyReactivated{PropertyID: p.ID, OwnerID: p.Owner, At: p.UpdatedAt})
	return nil
}

// Clone returns a copy that shares no slices with p and carries no pending events.
func (p *Property) Clone() *Property {
	if p == nil {
		return nil
	}
	out := &Property{
		ID:              p.ID,
		Owner:           p.Owner,
		Title:           p.Title,
		Window:          p.Window,
		Status:          p.Status,
		Advertisements:  append([]daterange.DateRange(nil), p.Advertisements...),
		CalendarFeedURL: p.CalendarFeedURL,
		StatusReason:    p.StatusReason,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		Version:         p.Version,
	}
	return out
}

func (p *Property) touch(now time.Time) {
	p.UpdatedAt = now.UTC()
}
