package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainrange "weekrent/internal/domain/shared/daterange"
)

const feed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:all-day@test\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20250110\r\n" +
	"DTEND;VALUE=DATE:20250113\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:timed@test\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250120T150000Z\r\n" +
	"DTEND:20250122T110000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:no-end@test\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20250125\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func day(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestParse_BusyRanges(t *testing.T) {
	entries, err := Parse(strings.NewReader(feed))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "all-day@test", entries[0].UID)
	assert.Equal(t, domainrange.DateRange{CheckIn: day(10), CheckOut: day(13)}, entries[0].Range)
	assert.Equal(t, domainrange.DateRange{CheckIn: day(20), CheckOut: day(23)}, entries[1].Range, "a timed event blocks each day it touches")
	assert.Equal(t, domainrange.DateRange{CheckIn: day(25), CheckOut: day(26)}, entries[2].Range)
}

func TestFeedClient_FetchesOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	entries, err := NewFeedClient(time.Second, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestFeedClient_StatusAndEmptyURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	client := NewFeedClient(time.Second, nil)

	_, err := client.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrFeedStatus)

	entries, err := client.Fetch(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, entries)
}
