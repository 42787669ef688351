package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/sony/gobreaker"

	"weekrent/internal/app/policies"
	domainrange "weekrent/internal/domain/shared/daterange"
)

const (
	maxFeedBytes = 2 << 20
	icalDate     = "20060102"
)

var ErrFeedStatus = errors.New("calendar: unexpected feed status")

// FeedClient fetches iCal feeds behind a circuit breaker so a dead host does not
// slow every segment computation down.
type FeedClient struct {
	HTTP    *http.Client
	Breaker *gobreaker.CircuitBreaker
	Logger  *slog.Logger
}

func NewFeedClient(timeout time.Duration, logger *slog.Logger) *FeedClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "calendar-feed",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &FeedClient{HTTP: &http.Client{Timeout: timeout}, Breaker: breaker, Logger: logger}
}

func (c *FeedClient) Fetch(ctx context.Context, url string) ([]policies.FeedEntry, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, nil
	}
	res, err := c.Breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	return res.([]policies.FeedEntry), nil
}

func (c *FeedClient) fetch(ctx context.Context, url string) ([]policies.FeedEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrFeedStatus, resp.StatusCode)
	}
	return Parse(io.LimitReader(resp.Body, maxFeedBytes))
}

// Parse reads VEVENTs as busy ranges. Timed events cover every day they touch;
// events without an end cover their start day.
func Parse(r io.Reader) ([]policies.FeedEntry, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("calendar: parse feed: %w", err)
	}
	var out []policies.FeedEntry
	for _, event := range cal.Events() {
		start, allDay, ok := eventTime(event, ics.ComponentPropertyDtStart)
		if !ok {
			continue
		}
		end, _, ok := eventTime(event, ics.ComponentPropertyDtEnd)
		checkIn := domainrange.Day(start)
		var checkOut time.Time
		switch {
		case !ok:
			checkOut = domainrange.AddDays(checkIn, 1)
		case allDay:
			checkOut = domainrange.Day(end)
		default:
			checkOut = domainrange.Day(end)
			if !end.Equal(checkOut) {
				checkOut = domainrange.AddDays(checkOut, 1)
			}
		}
		if !checkOut.After(checkIn) {
			checkOut = domainrange.AddDays(checkIn, 1)
		}
		out = append(out, policies.FeedEntry{
			UID:   event.Id(),
			Range: domainrange.DateRange{CheckIn: checkIn, CheckOut: checkOut},
		})
	}
	return out, nil
}

func eventTime(event *ics.VEvent, prop ics.ComponentProperty) (time.Time, bool, bool) {
	p := event.GetProperty(prop)
	if p == nil {
		return time.Time{}, false, false
	}
	value := strings.TrimSpace(p.Value)
	if len(value) == len(icalDate) {
		// floating dates name a calendar day, not an instant
		t, err := time.Parse(icalDate, value)
		return t, true, err == nil
	}
	var (
		t   time.Time
		err error
	)
	switch {
	case prop == ics.ComponentPropertyDtEnd:
		t, err = event.GetEndAt()
	default:
		t, err = event.GetStartAt()
	}
	if err != nil {
		return time.Time{}, false, false
	}
	return t.UTC(), false, true
}

var _ policies.CalendarFeed = (*FeedClient)(nil)
