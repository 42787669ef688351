package policies

import (
	"context"

	domainrange "weekrent/internal/domain/shared/daterange"
)

// FeedEntry is one busy range parsed from an external calendar.
type FeedEntry struct {
	UID   string
	Range domainrange.DateRange
}

// CalendarFeed fetches busy ranges from a property's external calendar URL.
type CalendarFeed interface {
	Fetch(ctx context.Context, url string) ([]FeedEntry, error)
}
