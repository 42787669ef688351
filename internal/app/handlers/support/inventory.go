package support

import (
	"context"
	"log/slog"
	"time"

	"weekrent/internal/app/policies"
	"weekrent/internal/app/uow"
	"weekrent/internal/domain/advertising"
	"weekrent/internal/domain/availability"
	domainbooking "weekrent/internal/domain/booking"
	domainproperties "weekrent/internal/domain/properties"
)

// Inventory assembles availability calendars from bookings and external feeds.
type Inventory struct {
	Feed   policies.CalendarFeed
	Logger *slog.Logger

	// feeds, once set by Prefetch, replaces network fetches.
	feeds map[domainproperties.PropertyID][]policies.FeedEntry
}

// Prefetch fetches the external feeds of props and returns an Inventory that serves
// them from memory. Call it before taking the owner lock so the locked section makes
// no network calls. Properties outside props, or whose feed failed, get internal
// bookings only.
func (i Inventory) Prefetch(ctx context.Context, props ...*domainproperties.Property) Inventory {
	out := i
	out.feeds = make(map[domainproperties.PropertyID][]policies.FeedEntry, len(props))
	for _, p := range props {
		if p == nil {
			continue
		}
		entries, err := i.fetch(ctx, p)
		if err != nil {
			i.logger().WarnContext(ctx, "calendar feed unavailable, using internal bookings only",
				"property_id", p.ID, "error", err)
			continue
		}
		out.feeds[p.ID] = entries
	}
	return out
}

// PrefetchOwner lists the owner's properties and prefetches their feeds along with extra.
func (i Inventory) PrefetchOwner(ctx context.Context, unit uow.UnitOfWork, owner domainproperties.OwnerID, extra ...*domainproperties.Property) (Inventory, error) {
	props, err := unit.Properties().ListByOwner(ctx, owner)
	if err != nil {
		return i, err
	}
	return i.Prefetch(ctx, append(props, extra...)...), nil
}

// Calendar builds the calendar of p from its blocking bookings, skipping except.
// Feed failures are logged and the calendar falls back to internal bookings.
func (i Inventory) Calendar(ctx context.Context, unit uow.UnitOfWork, p *domainproperties.Property, except domainbooking.BookingID) (*availability.Calendar, error) {
	bookings, err := unit.Bookings().ListByProperty(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	cal := availability.NewCalendar(p.ID, p.Window)
	for _, b := range bookings {
		if b.ID == except || !b.IsBlocking() {
			continue
		}
		cal.AddBooking(string(b.ID), b.Range)
	}
	var entries []policies.FeedEntry
	if i.feeds != nil {
		entries = i.feeds[p.ID]
	} else if entries, err = i.fetch(ctx, p); err != nil {
		i.logger().WarnContext(ctx, "calendar feed unavailable, using internal bookings only",
			"property_id", p.ID, "error", err)
		return cal, nil
	}
	for _, e := range entries {
		cal.AddExternal(e.UID, e.Range)
	}
	return cal, nil
}

func (i Inventory) fetch(ctx context.Context, p *domainproperties.Property) ([]policies.FeedEntry, error) {
	if p.CalendarFeedURL == "" || i.Feed == nil {
		return nil, nil
	}
	return i.Feed.Fetch(ctx, p.CalendarFeedURL)
}

// Candidates loads every property of owner with the segments that remain from today on.
func (i Inventory) Candidates(ctx context.Context, unit uow.UnitOfWork, owner domainproperties.OwnerID, today time.Time) ([]advertising.Candidate, error) {
	props, err := unit.Properties().ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]advertising.Candidate, 0, len(props))
	for _, p := range props {
		cal, err := i.Calendar(ctx, unit, p, "")
		if err != nil {
			return nil, err
		}
		out = append(out, advertising.Candidate{Property: p, Segments: availability.Upcoming(cal.Segments(), today)})
	}
	return out, nil
}

func (i Inventory) logger() *slog.Logger {
	if i.Logger != nil {
		return i.Logger
	}
	return slog.Default()
}

// Clock returns now() in UTC, defaulting to time.Now.
func Clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now().UTC()
}

// InvalidateSegments drops cached display segments once the unit in ctx commits.
// Errors only cost staleness, so they are logged.
func InvalidateSegments(ctx context.Context, cache policies.SegmentCache, logger *slog.Logger, ids ...domainproperties.PropertyID) {
	if cache == nil || len(ids) == 0 {
		return
	}
	uow.AfterCommit(ctx, func(ctx context.Context) {
		if err := cache.Invalidate(ctx, ids...); err != nil {
			if logger == nil {
				logger = slog.Default()
			}
			logger.WarnContext(ctx, "segment cache invalidation failed", "property_ids", ids, "error", err)
		}
	})
}
