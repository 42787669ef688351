package dto

import (
	"time"

	domainproperties "weekrent/internal/domain/properties"
	domainrange "weekrent/internal/domain/shared/daterange"
)

type Property struct {
	ID                      string    `json:"id"`
	OwnerID                 string    `json:"owner_id"`
	Title                   string    `json:"title"`
	Status                  string    `json:"status"`
	StatusReason            string    `json:"status_reason,omitempty"`
	Window                  *Range    `json:"window,omitempty"`
	Advertisements          []Range   `json:"advertisements"`
	Segments                []Range   `json:"segments"`
	ExcludedFromAdvertising bool      `json:"excluded_from_advertising"`
	CalendarFeedURL         string    `json:"calendar_feed_url,omitempty"`
	UpdatedAt               time.Time `json:"updated_at"`
	Version                 int64     `json:"version"`
}

func MapProperty(p *domainproperties.Property, segments []domainrange.DateRange) Property {
	if p == nil {
		return Property{}
	}
	out := Property{
		ID:              string(p.ID),
		OwnerID:         string(p.Owner),
		Title:           p.Title,
		Status:          string(p.Status),
		StatusReason:    p.StatusReason,
		Advertisements:  MapRanges(p.Advertisements),
		Segments:        MapRanges(segments),
		CalendarFeedURL: p.CalendarFeedURL,
		UpdatedAt:       p.UpdatedAt,
		Version:         p.Version,
	}
	if p.HasWindow() {
		w := MapRange(p.Window)
		out.Window = &w
	}
	return out
}

type OwnerProperties struct {
	OwnerID     string     `json:"owner_id"`
	Active      []Property `json:"active"`
	Expired     []Property `json:"expired"`
	Rented      []Property `json:"rented"`
	Deleted     []Property `json:"deleted"`
	ActiveCount int        `json:"active_count"`
	ActiveCap   int        `json:"active_cap"`
}
